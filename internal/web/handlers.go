package web

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/export"
	"rollbook/internal/metrics"
	"rollbook/internal/student"
)

// ---- public check-in ----

func (s *Server) checkInForm(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

func (s *Server) checkIn(c *gin.Context) {
	matric := c.PostForm("matricNumber")
	res, err := s.attend.CheckIn(c.Request.Context(), matric)
	if err != nil {
		msg := "Something went wrong. Please try again."
		if errors.Is(err, attendance.ErrStudentNotFound) {
			msg = "Student not found with this Matric Number."
		} else {
			log.Printf("check-in failed: %v", err)
		}
		c.HTML(http.StatusOK, "index.html", gin.H{"Error": msg, "Matric": matric})
		return
	}
	if res.Duplicate {
		c.HTML(http.StatusOK, "index.html", gin.H{"Error": res.Message})
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Success": res.Message})
}

// ---- login / logout ----

func (s *Server) loginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	token, err := s.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		if !errors.Is(err, admin.ErrInvalidCredentials) {
			log.Printf("login failed: %v", err)
		}
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid credentials"})
		return
	}

	c.SetCookie(admin.SessionCookie, token, int(s.auth.SessionTTL().Seconds()), "/", "", s.cfg.Production(), true)
	c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(admin.SessionCookie, "", -1, "/", "", s.cfg.Production(), true)
	c.Redirect(http.StatusSeeOther, loginPath)
}

// ---- dashboard ----

func (s *Server) redirectDashboard(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

func (s *Server) dashboard(c *gin.Context) {
	stats, err := s.attend.Stats(c.Request.Context())
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Stats": stats})
}

// ---- student management ----

func (s *Server) studentList(c *gin.Context) {
	students, err := s.students.List(c.Request.Context())
	if err != nil {
		log.Printf("list students failed: %v", err)
	}
	c.HTML(http.StatusOK, "students.html", gin.H{
		"Students": students,
		"Flash":    c.Query("msg"),
	})
}

func (s *Server) studentAddForm(c *gin.Context) {
	c.HTML(http.StatusOK, "student_add.html", gin.H{"Form": student.Input{}})
}

func (s *Server) studentCreate(c *gin.Context) {
	in := student.Input{
		FullName:     c.PostForm("fullName"),
		MatricNumber: c.PostForm("matricNumber"),
		Department:   c.PostForm("department"),
		Level:        c.PostForm("level"),
	}
	if _, err := s.students.Create(c.Request.Context(), in); err != nil {
		msg := "Failed to create student"
		switch {
		case errors.Is(err, student.ErrInvalid):
			msg = "Invalid input data"
		case errors.Is(err, student.ErrDuplicateMatric):
			msg = "Matric Number already exists"
		default:
			log.Printf("create student failed: %v", err)
		}
		c.HTML(http.StatusOK, "student_add.html", gin.H{"Error": msg, "Form": in})
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin/students")
}

func (s *Server) studentDelete(c *gin.Context) {
	s.students.Delete(c.Request.Context(), c.Param("id"))
	c.Redirect(http.StatusSeeOther, "/admin/students")
}

// ---- bulk upload ----

func (s *Server) uploadForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{})
}

// uploadCommit runs both phases of the import on one request boundary:
// parse/validate the uploaded file, then commit the rows.
func (s *Server) uploadCommit(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.HTML(http.StatusOK, "upload.html", gin.H{"Error": "Choose a CSV or XLSX file to upload."})
		return
	}
	defer file.Close()

	preview, err := student.ParseUpload(header.Filename, file)
	if err != nil {
		msg := "Error parsing file. Check format."
		if errors.Is(err, student.ErrUnsupportedFile) {
			msg = err.Error()
		}
		c.HTML(http.StatusOK, "upload.html", gin.H{"Error": msg})
		return
	}

	result, err := s.students.BulkCreate(c.Request.Context(), preview.Rows)
	if err != nil {
		msg := "Failed to save students to database."
		switch {
		case errors.Is(err, student.ErrNoValidRows):
			msg = "No valid students found to upload."
		case errors.Is(err, student.ErrAllDuplicates):
			msg = "All students in this list already exist."
		default:
			log.Printf("bulk import failed: %v", err)
		}
		c.HTML(http.StatusOK, "upload.html", gin.H{"Error": msg, "RowErrors": result.RowErrors})
		return
	}
	c.HTML(http.StatusOK, "upload.html", gin.H{"Success": result.Message(), "RowErrors": result.RowErrors})
}

func (s *Server) deleteEverything(c *gin.Context) {
	if err := s.attend.PurgeAll(c.Request.Context()); err != nil {
		log.Printf("danger-zone delete failed: %v", err)
		c.HTML(http.StatusOK, "upload.html", gin.H{"Error": "Failed to delete data."})
		return
	}
	c.HTML(http.StatusOK, "upload.html", gin.H{
		"Success": "All student records and attendance logs have been permanently deleted.",
	})
}

// ---- attendance ----

func (s *Server) attendanceList(c *gin.Context) {
	query := c.Query("q")
	entries, err := s.attend.List(c.Request.Context(), query)
	if err != nil {
		log.Printf("list attendance failed: %v", err)
	}
	c.HTML(http.StatusOK, "attendance.html", gin.H{"Entries": entries, "Query": query})
}

func (s *Server) attendanceDelete(c *gin.Context) {
	if err := s.attend.Delete(c.Request.Context(), c.Param("id")); err != nil && !errors.Is(err, attendance.ErrNotFound) {
		log.Printf("delete attendance failed: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/admin/attendance")
}

// ---- JSON / download endpoints ----

func (s *Server) studentSearch(c *gin.Context) {
	res := s.students.Search(c.Request.Context(), c.Query("q"))
	if res == nil {
		res = []student.Student{}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) exportReport(c *gin.Context) {
	now := time.Now()
	rows := s.attend.ExportRows(c.Request.Context())
	buf, err := export.AttendanceReport(rows, now)
	if err != nil {
		log.Printf("build report failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	metrics.Exports.Inc()
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
