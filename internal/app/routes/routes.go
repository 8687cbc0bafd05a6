package routes

import (
	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/app/controllers"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/websocket"
)

// Controllers bundles every handler the router mounts
type Controllers struct {
	Auth       *controllers.AuthController
	Dashboard  *controllers.DashboardController
	Batch      *controllers.BatchController
	Student    *controllers.StudentController
	Attendance *controllers.AttendanceController
	Homework   *controllers.HomeworkController
	Report     *controllers.ReportController
	Export     *controllers.ExportController
	Portal     *controllers.PortalController
	Help       *controllers.HelpController
	Upload     *controllers.UploadController
	Health     *controllers.HealthController
	Socket     *websocket.Handler
}

// SetupRouter configures all application routes. Session, CSRF and identity
// middleware must already be installed on router.
func SetupRouter(router *gin.Engine, c Controllers) {
	router.GET("/health", c.Health.Health)

	// --- Public pages ---
	router.GET("/", c.Auth.Home)
	router.GET("/welcome", c.Auth.Welcome)
	router.GET("/login", c.Auth.LoginPage)
	router.POST("/login", c.Auth.Login)
	router.GET("/verify", c.Auth.VerifyPage)
	router.POST("/verify", c.Auth.Verify)
	router.GET("/signup/details", c.Auth.SignupPage)
	router.POST("/signup/details", c.Auth.Signup)
	router.GET("/student/login", c.Auth.StudentLoginPage)
	router.POST("/student/login", c.Auth.StudentLogin)
	router.POST("/logout", c.Auth.Logout)
	router.GET("/logout", c.Auth.Logout)

	// Notification socket, either role
	router.GET("/ws", c.Socket.HandleConnection)

	// --- Tutor pages ---
	tutor := router.Group("")
	tutor.Use(middleware.RequireCapability(appauth.ManageTuition))
	{
		tutor.GET("/dashboard", c.Dashboard.Dashboard)
		tutor.GET("/profile", c.Auth.ProfilePage)
		tutor.POST("/profile", c.Auth.UpdateProfile)

		batches := tutor.Group("/batches")
		{
			batches.GET("", c.Batch.List)
			batches.GET("/new", c.Batch.New)
			batches.POST("", c.Batch.Create)
			batches.GET("/:id", c.Batch.Show)
			batches.GET("/:id/edit", c.Batch.Edit)
			batches.POST("/:id/edit", c.Batch.Update)
		}

		students := tutor.Group("/students")
		{
			students.GET("", c.Student.List)
			students.GET("/new", c.Student.New)
			students.POST("", c.Student.Create)
			students.GET("/:id", c.Student.Show)
			students.GET("/:id/qr.png", c.Student.QRCode)
			students.GET("/:id/edit", c.Student.Edit)
			students.POST("/:id/edit", c.Student.Update)
		}

		tutor.GET("/attendance", c.Attendance.Page)

		homework := tutor.Group("/homework")
		{
			homework.GET("", c.Homework.List)
			homework.GET("/new", c.Homework.New)
			homework.POST("", c.Homework.Create)
			homework.GET("/:id/edit", c.Homework.Edit)
			homework.POST("/:id/edit", c.Homework.Update)
		}

		reports := tutor.Group("/reports")
		{
			reports.GET("", c.Report.Overview)
			reports.GET("/batch/:id", c.Report.Batch)
			reports.GET("/student/:id", c.Report.Student)
			reports.GET("/student/:id/pdf", c.Report.StudentPDF)
		}

		exports := tutor.Group("/export")
		{
			exports.GET("/students", c.Export.Students)
			exports.GET("/attendance", c.Export.Attendance)
			exports.GET("/reports/batch/:id", c.Export.BatchReport)
		}
	}

	// --- Tutor API ---
	tutorAPI := router.Group("/api")
	tutorAPI.Use(middleware.RequireCapability(appauth.ManageTuition))
	{
		tutorAPI.GET("/batches/upcoming", c.Dashboard.Upcoming)
		tutorAPI.DELETE("/batches/:id", c.Batch.Delete)
		tutorAPI.DELETE("/students/:id", c.Student.Delete)
		tutorAPI.DELETE("/homework/:id", c.Homework.Delete)
		tutorAPI.POST("/attendance/save", c.Attendance.Save)
	}

	// --- Student portal ---
	portal := router.Group("/student")
	portal.Use(middleware.RequireCapability(appauth.ViewPortal))
	{
		portal.GET("/dashboard", c.Portal.Dashboard)
		portal.GET("/attendance", c.Portal.Attendance)
		portal.GET("/homework", c.Portal.Homework)
		portal.GET("/profile", c.Portal.Profile)
	}

	portalAPI := router.Group("/api/student")
	portalAPI.Use(middleware.RequireCapability(appauth.ViewPortal))
	{
		portalAPI.GET("/homework/reminders", c.Portal.HomeworkReminders)
		portalAPI.GET("/attendance/notifications", c.Portal.AttendanceNotifications)
	}

	// --- Shared ---
	router.POST("/api/help-bot/query", middleware.RequireCapability(appauth.AskHelp), c.Help.Query)
	router.GET("/uploads/*key", middleware.RequireCapability(appauth.ReadAttachments), c.Upload.Serve)
}
