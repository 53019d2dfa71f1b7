package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/middleware"
	"github.com/westgate-schools/sms-api/internal/models"
	"github.com/westgate-schools/sms-api/internal/service"
)

// Dependencies bundles everything route registration needs.
type Dependencies struct {
	Auth     *AuthHandler
	Academic *AcademicHandler
	Classes  *ClassHandler
	Subjects *SubjectHandler
	Students *StudentHandler
	Invoices *InvoiceHandler
	Receipts *ReceiptHandler
	Results  *ResultHandler

	AuthService     *service.AuthService
	AcademicService *service.AcademicService
	Logger          *zap.Logger
}

// RegisterRoutes mounts every API route under the given prefix. Finance and
// result groups additionally resolve the current session and term before
// their handlers run.
func RegisterRoutes(r *gin.Engine, prefix string, deps Dependencies) {
	api := r.Group(prefix)

	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/refresh", deps.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.AuthService))

	secured.POST("/auth/logout", deps.Auth.Logout)
	secured.PUT("/auth/password", deps.Auth.ChangePassword)
	secured.GET("/auth/me", deps.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)
	registrar := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	bursar := middleware.RequireRoles(models.RoleAdmin, models.RoleBursar)
	academicStaff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleRegistrar)

	secured.GET("/academic/current", deps.Academic.Current)
	secured.GET("/academic/sessions", deps.Academic.ListSessions)
	secured.POST("/academic/sessions", admin, deps.Academic.CreateSession)
	secured.PUT("/academic/sessions/:id", admin, deps.Academic.RenameSession)
	secured.PUT("/academic/sessions/:id/current", admin, deps.Academic.SetCurrentSession)
	secured.DELETE("/academic/sessions/:id", admin, deps.Academic.DeleteSession)
	secured.GET("/academic/terms", deps.Academic.ListTerms)
	secured.POST("/academic/terms", admin, deps.Academic.CreateTerm)
	secured.PUT("/academic/terms/:id", admin, deps.Academic.RenameTerm)
	secured.PUT("/academic/terms/:id/current", admin, deps.Academic.SetCurrentTerm)
	secured.DELETE("/academic/terms/:id", admin, deps.Academic.DeleteTerm)

	secured.GET("/classes", deps.Classes.List)
	secured.GET("/classes/:id", deps.Classes.Get)
	secured.POST("/classes", registrar, deps.Classes.Create)
	secured.PUT("/classes/:id", registrar, deps.Classes.Rename)
	secured.DELETE("/classes/:id", registrar, deps.Classes.Delete)

	secured.GET("/subjects", deps.Subjects.List)
	secured.GET("/subjects/:id", deps.Subjects.Get)
	secured.POST("/subjects", registrar, deps.Subjects.Create)
	secured.PUT("/subjects/:id", registrar, deps.Subjects.Rename)
	secured.DELETE("/subjects/:id", registrar, deps.Subjects.Delete)

	secured.GET("/students", deps.Students.List)
	secured.GET("/students/:id", deps.Students.Get)
	secured.POST("/students", registrar, deps.Students.Create)
	secured.PUT("/students/:id", registrar, deps.Students.Update)
	secured.DELETE("/students/:id", registrar, deps.Students.Delete)
	secured.POST("/students/:id/passport", registrar, deps.Students.UploadPassport)
	secured.POST("/students/bulk-upload", registrar, deps.Students.BulkUpload)

	finance := secured.Group("")
	finance.Use(bursar, middleware.AcademicContext(deps.AcademicService, deps.Logger))
	finance.GET("/invoices", deps.Invoices.List)
	finance.GET("/invoices/:id", deps.Invoices.Get)
	finance.POST("/invoices", deps.Invoices.Create)
	finance.POST("/invoices/bulk", deps.Invoices.BulkIssue)
	finance.POST("/invoices/:id/items", deps.Invoices.AddItem)
	finance.DELETE("/invoices/:id", deps.Invoices.Delete)
	finance.GET("/invoices/:id/statement", deps.Invoices.Statement)
	finance.GET("/invoices/:id/receipts", deps.Receipts.ListByInvoice)
	finance.POST("/receipts", deps.Receipts.Create)
	finance.DELETE("/receipts/:id", deps.Receipts.Delete)

	results := secured.Group("")
	results.Use(academicStaff, middleware.AcademicContext(deps.AcademicService, deps.Logger))
	results.POST("/results/batch", deps.Results.BatchCreate)
	results.GET("/results/summary", deps.Results.Summary)
	results.PUT("/results/scores", deps.Results.UpdateScores)
	results.DELETE("/results/:id", deps.Results.Delete)
	results.GET("/results/export", deps.Results.ExportCSV)
}
