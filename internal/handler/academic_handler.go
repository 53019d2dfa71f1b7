package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/sms-api/internal/service"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/response"
)

// AcademicHandler wires session and term management to HTTP routes.
type AcademicHandler struct {
	academic *service.AcademicService
}

// NewAcademicHandler constructs a new AcademicHandler.
func NewAcademicHandler(academic *service.AcademicService) *AcademicHandler {
	return &AcademicHandler{academic: academic}
}

// Current godoc
// @Summary Resolve the current session and term
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/current [get]
func (h *AcademicHandler) Current(c *gin.Context) {
	sc, err := h.academic.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sc, nil)
}

// ListSessions godoc
// @Summary List academic sessions
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/sessions [get]
func (h *AcademicHandler) ListSessions(c *gin.Context) {
	sessions, err := h.academic.ListSessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateSession godoc
// @Summary Create an academic session
// @Tags Academic
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/sessions [post]
func (h *AcademicHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.academic.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// RenameSession godoc
// @Summary Rename an academic session
// @Tags Academic
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.RenameRequest true "New name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/sessions/{id} [put]
func (h *AcademicHandler) RenameSession(c *gin.Context) {
	var req service.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.academic.RenameSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SetCurrentSession godoc
// @Summary Flag a session as current
// @Tags Academic
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/sessions/{id}/current [put]
func (h *AcademicHandler) SetCurrentSession(c *gin.Context) {
	session, err := h.academic.SetCurrentSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// DeleteSession godoc
// @Summary Delete an academic session
// @Tags Academic
// @Param id path string true "Session ID"
// @Success 204
// @Security BearerAuth
// @Router /academic/sessions/{id} [delete]
func (h *AcademicHandler) DeleteSession(c *gin.Context) {
	if err := h.academic.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTerms godoc
// @Summary List academic terms
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/terms [get]
func (h *AcademicHandler) ListTerms(c *gin.Context) {
	terms, err := h.academic.ListTerms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil)
}

// CreateTerm godoc
// @Summary Create an academic term
// @Tags Academic
// @Accept json
// @Produce json
// @Param payload body service.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/terms [post]
func (h *AcademicHandler) CreateTerm(c *gin.Context) {
	var req service.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload"))
		return
	}
	term, err := h.academic.CreateTerm(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// RenameTerm godoc
// @Summary Rename an academic term
// @Tags Academic
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body service.RenameRequest true "New name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/terms/{id} [put]
func (h *AcademicHandler) RenameTerm(c *gin.Context) {
	var req service.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload"))
		return
	}
	term, err := h.academic.RenameTerm(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// SetCurrentTerm godoc
// @Summary Flag a term as current
// @Tags Academic
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic/terms/{id}/current [put]
func (h *AcademicHandler) SetCurrentTerm(c *gin.Context) {
	term, err := h.academic.SetCurrentTerm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, term, nil)
}

// DeleteTerm godoc
// @Summary Delete an academic term
// @Tags Academic
// @Param id path string true "Term ID"
// @Success 204
// @Security BearerAuth
// @Router /academic/terms/{id} [delete]
func (h *AcademicHandler) DeleteTerm(c *gin.Context) {
	if err := h.academic.DeleteTerm(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
