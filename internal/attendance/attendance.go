package attendance

import (
	"errors"
	"time"
)

// Record is one check-in row.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	OccurredAt time.Time `json:"timestamp"`
}

// Entry is a check-in joined with its student, the shape the admin list and
// the export consume.
type Entry struct {
	ID           string    `json:"id"`
	OccurredAt   time.Time `json:"timestamp"`
	FullName     string    `json:"fullName"`
	MatricNumber string    `json:"matricNumber"`
	Department   string    `json:"department"`
	Level        string    `json:"level"`
}

// Stats feeds the admin dashboard.
type Stats struct {
	TotalStudents   int `json:"totalStudents"`
	CheckedInToday  int `json:"checkedInToday"`
	TotalAttendance int `json:"totalAttendance"`
}

var (
	// ErrStudentNotFound signals a check-in for an unregistered matric number.
	ErrStudentNotFound = errors.New("student not found with this matric number")
	// ErrNotFound signals a missing attendance row.
	ErrNotFound = errors.New("attendance record not found")
)

// dayOf truncates a time to its local calendar day. Two check-ins a second
// apart across midnight land on different days.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
