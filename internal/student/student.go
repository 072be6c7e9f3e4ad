package student

import (
	"errors"
	"time"
)

// Student is a registered student identified by matric number.
type Student struct {
	ID           string    `json:"id"`
	MatricNumber string    `json:"matricNumber"`
	FullName     string    `json:"fullName"`
	Department   string    `json:"department"`
	Level        string    `json:"level"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Input carries the four required fields for creating a student.
type Input struct {
	FullName     string `form:"fullName" validate:"required"`
	MatricNumber string `form:"matricNumber" validate:"required"`
	Department   string `form:"department" validate:"required"`
	Level        string `form:"level" validate:"required"`
}

var (
	// ErrInvalid signals missing or malformed input fields.
	ErrInvalid = errors.New("invalid student data")
	// ErrDuplicateMatric signals a matric number that already exists.
	ErrDuplicateMatric = errors.New("matric number already exists")
	// ErrNoValidRows signals a bulk import where no row passed validation.
	ErrNoValidRows = errors.New("no valid students found to upload")
	// ErrAllDuplicates signals a bulk import where every candidate already exists.
	ErrAllDuplicates = errors.New("all students in this list already exist")
	// ErrBulkWrite signals an unexpected store failure during a batch insert.
	ErrBulkWrite = errors.New("failed to save students")
)
