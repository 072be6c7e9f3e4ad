package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/config"
	"rollbook/internal/student"
)

// ---- in-memory fakes ----

type fakeStudents struct {
	byMatric map[string]student.Student
}

func (f *fakeStudents) Insert(_ context.Context, in student.Input) (student.Student, bool, error) {
	if _, ok := f.byMatric[in.MatricNumber]; ok {
		return student.Student{}, false, nil
	}
	s := student.Student{ID: "id-" + in.MatricNumber, MatricNumber: in.MatricNumber, FullName: in.FullName, Department: in.Department, Level: in.Level}
	f.byMatric[in.MatricNumber] = s
	return s, true, nil
}

func (f *fakeStudents) List(context.Context) ([]student.Student, error) {
	var res []student.Student
	for _, s := range f.byMatric {
		res = append(res, s)
	}
	return res, nil
}

func (f *fakeStudents) SearchByMatric(_ context.Context, query string, limit int) ([]student.Student, error) {
	var res []student.Student
	for _, s := range f.byMatric {
		if strings.Contains(s.MatricNumber, query) && len(res) < limit {
			res = append(res, s)
		}
	}
	return res, nil
}

func (f *fakeStudents) ExistingMatrics(_ context.Context, matrics []string) ([]string, error) {
	var res []string
	for _, m := range matrics {
		if _, ok := f.byMatric[m]; ok {
			res = append(res, m)
		}
	}
	return res, nil
}

func (f *fakeStudents) BulkInsert(_ context.Context, ins []student.Input) (int, error) {
	n := 0
	for _, in := range ins {
		if _, inserted, _ := f.Insert(context.Background(), in); inserted {
			n++
		}
	}
	return n, nil
}

func (f *fakeStudents) Delete(_ context.Context, id string) error {
	for m, s := range f.byMatric {
		if s.ID == id {
			delete(f.byMatric, m)
		}
	}
	return nil
}

func (f *fakeStudents) Count(context.Context) (int, error) { return len(f.byMatric), nil }

func (f *fakeStudents) GetByMatric(_ context.Context, matric string) (*student.Student, error) {
	s, ok := f.byMatric[matric]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStudents) DeleteAll(context.Context) error {
	f.byMatric = make(map[string]student.Student)
	return nil
}

type fakeAttendance struct {
	days map[string]struct{}
}

func (f *fakeAttendance) InsertForDay(_ context.Context, studentID string, now time.Time) (bool, error) {
	key := studentID + now.Format("2006-01-02")
	if _, ok := f.days[key]; ok {
		return false, nil
	}
	f.days[key] = struct{}{}
	return true, nil
}

func (f *fakeAttendance) List(context.Context, string, int) ([]attendance.Entry, error) {
	return nil, nil
}
func (f *fakeAttendance) AllNewestFirst(context.Context) ([]attendance.Entry, error) {
	return nil, nil
}
func (f *fakeAttendance) Delete(context.Context, string) (bool, error) { return true, nil }
func (f *fakeAttendance) DeleteAll(context.Context) error {
	f.days = make(map[string]struct{})
	return nil
}
func (f *fakeAttendance) CountForDay(context.Context, time.Time) (int, error) {
	return len(f.days), nil
}
func (f *fakeAttendance) Count(context.Context) (int, error) { return len(f.days), nil }

type fakeAccounts struct {
	byName map[string]admin.Account
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*admin.Account, error) {
	a, ok := f.byName[username]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeAccounts) Count(context.Context) (int, error) { return len(f.byName), nil }

func (f *fakeAccounts) Insert(_ context.Context, username, hash string) (admin.Account, bool, error) {
	if _, ok := f.byName[username]; ok {
		return admin.Account{}, false, nil
	}
	a := admin.Account{ID: "id-" + username, Username: username, PasswordHash: hash}
	f.byName[username] = a
	return a, true, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStudents) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	studentStore := &fakeStudents{byMatric: map[string]student.Student{
		"CSC/2024/001": {ID: "s1", MatricNumber: "CSC/2024/001", FullName: "John Doe", Department: "Computer Science", Level: "100"},
	}}
	cfg := config.App{Env: "test", RateLimitPerMin: 1000, SessionTTL: 24 * time.Hour}

	students := student.NewService(studentStore, nil, 0)
	attend := attendance.NewService(&fakeAttendance{days: make(map[string]struct{})}, studentStore, nil, 0)
	auth := admin.NewAuth(&fakeAccounts{byName: make(map[string]admin.Account)}, "rollbook-test", "test-key", cfg.SessionTTL, "admin")

	r := gin.New()
	NewServer(cfg, students, attend, auth).Register(r)
	return r, studentStore
}

func postForm(r *gin.Engine, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCheckInPage(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("form renders", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Matric Number")
	})

	t.Run("successful check-in greets the student", func(t *testing.T) {
		rec := postForm(r, "/checkin", url.Values{"matricNumber": {"CSC/2024/001"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Check-in successful! Welcome, John Doe.")
	})

	t.Run("repeat check-in shows the duplicate message", func(t *testing.T) {
		rec := postForm(r, "/checkin", url.Values{"matricNumber": {"CSC/2024/001"}})
		assert.Contains(t, rec.Body.String(), "already checked in today")
	})

	t.Run("unknown matric number", func(t *testing.T) {
		rec := postForm(r, "/checkin", url.Values{"matricNumber": {"NOPE"}})
		assert.Contains(t, rec.Body.String(), "Student not found with this Matric Number.")
	})
}

func TestLoginFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == admin.SessionCookie {
			session = c
		}
	}
	assert.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	t.Run("gated page with cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/students", nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CSC/2024/001")
	})

	t.Run("gated page without cookie redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/students", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	})

	t.Run("wrong password rejected with one generic message", func(t *testing.T) {
		rec := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	})
}

func TestStudentManagement(t *testing.T) {
	r, store := newTestRouter(t)
	rec := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	session := rec.Result().Cookies()[0]

	t.Run("create redirects back to the list", func(t *testing.T) {
		rec := postForm(r, "/admin/students", url.Values{
			"fullName": {"Jane Smith"}, "matricNumber": {"CSC/2024/002"},
			"department": {"Physics"}, "level": {"200"},
		}, session)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin/students", rec.Header().Get("Location"))
		assert.Len(t, store.byMatric, 2)
	})

	t.Run("duplicate matric number is called out", func(t *testing.T) {
		rec := postForm(r, "/admin/students", url.Values{
			"fullName": {"Someone Else"}, "matricNumber": {"CSC/2024/001"},
			"department": {"Physics"}, "level": {"200"},
		}, session)
		assert.Contains(t, rec.Body.String(), "Matric Number already exists")
		assert.Len(t, store.byMatric, 2)
	})

	t.Run("typeahead returns json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/students/search?q=2024", nil)
		req.AddCookie(session)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CSC/2024/001")
	})

	t.Run("typeahead without session is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/students/search?q=2024", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("danger zone wipes everything and needs a session", func(t *testing.T) {
		rec := postForm(r, "/admin/students/delete-all", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Len(t, store.byMatric, 2)

		rec = postForm(r, "/admin/students/delete-all", url.Values{}, session)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "permanently deleted")
		assert.Empty(t, store.byMatric)
	})
}

func TestExportDownload(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	session := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/admin/api/export", nil)
	req.AddCookie(session)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Header().Get("Content-Disposition"), "Attendance_Report_")
}
