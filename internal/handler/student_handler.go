package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	"github.com/westgate-schools/sms-api/internal/service"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/response"
	"github.com/westgate-schools/sms-api/pkg/storage"
)

// StudentHandler wires the student register to HTTP routes.
type StudentHandler struct {
	students *service.StudentService
	importer *service.StudentImportService
	storage  *storage.LocalStorage
	logger   *zap.Logger
}

// NewStudentHandler constructs a new StudentHandler.
func NewStudentHandler(students *service.StudentService, importer *service.StudentImportService, store *storage.LocalStorage, logger *zap.Logger) *StudentHandler {
	return &StudentHandler{students: students, importer: importer, storage: store, logger: logger}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or registration number"
// @Param class_id query string false "Filter by current class"
// @Param status query string false "Filter by status (active/inactive)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (surname,registration_number,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		ClassID:   c.Query("class_id"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student and its passport image
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadPassport godoc
// @Summary Attach a passport photograph
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param passport formData file true "Passport image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/passport [post]
func (h *StudentHandler) UploadPassport(c *gin.Context) {
	file, err := c.FormFile("passport")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "passport file is required"))
		return
	}
	student, err := h.students.UploadPassport(c.Request.Context(), c.Param("id"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// BulkUpload godoc
// @Summary Import students from a CSV sheet
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param sheet formData file true "CSV sheet"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/bulk-upload [post]
func (h *StudentHandler) BulkUpload(c *gin.Context) {
	file, err := c.FormFile("sheet")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sheet file is required"))
		return
	}
	if ext := strings.ToLower(file.Filename); !strings.HasSuffix(ext, ".csv") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sheet must be a .csv file"))
		return
	}

	// The sheet is staged on disk only for the duration of the import and
	// removed afterwards regardless of outcome.
	stored, err := h.storage.SaveUpload("imports", file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage uploaded sheet"))
		return
	}
	defer func() {
		if err := h.storage.Delete(stored); err != nil {
			h.logger.Warn("failed to remove staged sheet", zap.String("path", stored), zap.Error(err))
		}
	}()

	f, err := h.storage.Open(stored)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded sheet"))
		return
	}
	defer f.Close()

	summary, err := h.importer.Import(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
