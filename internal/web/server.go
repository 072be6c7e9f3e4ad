// Package web serves the public check-in page and the admin dashboard.
package web

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/config"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/student"
)

//go:embed templates/*.html
var templateFS embed.FS

const loginPath = "/admin/login"

// Server holds the handler dependencies.
type Server struct {
	cfg      config.App
	students *student.Service
	attend   *attendance.Service
	auth     *admin.Auth
}

// NewServer creates the web server.
func NewServer(cfg config.App, students *student.Service, attend *attendance.Service, auth *admin.Auth) *Server {
	return &Server{cfg: cfg, students: students, attend: attend, auth: auth}
}

// Register mounts all routes on the engine.
func (s *Server) Register(r *gin.Engine) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	limiter := httpmiddleware.NewTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin)

	r.GET("/", s.checkInForm)
	r.POST("/checkin", limiter.Middleware(), s.checkIn)

	r.GET(loginPath, s.loginForm)
	r.POST(loginPath, s.login)
	r.POST("/admin/logout", s.logout)

	gated := r.Group("/admin", admin.RequireSession(s.auth, loginPath))
	{
		gated.GET("", s.redirectDashboard)
		gated.GET("/dashboard", s.dashboard)

		gated.GET("/students", s.studentList)
		gated.GET("/students/add", s.studentAddForm)
		gated.POST("/students", s.studentCreate)
		gated.POST("/students/:id/delete", s.studentDelete)
		gated.GET("/students/upload", s.uploadForm)
		gated.POST("/students/upload", s.uploadCommit)
		gated.POST("/students/delete-all", s.deleteEverything)

		gated.GET("/attendance", s.attendanceList)
		gated.POST("/attendance/:id/delete", s.attendanceDelete)

		gated.GET("/api/students/search", s.studentSearch)
		gated.GET("/api/export", s.exportReport)
	}
}
