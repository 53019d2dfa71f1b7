package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/sms-api/internal/service"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/response"
)

// ResultHandler wires score sheets to HTTP routes. Every route runs behind
// the academic context middleware.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs a new ResultHandler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// BatchCreate godoc
// @Summary Open score sheets for students and subjects
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.BatchCreateResultsRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/batch [post]
func (h *ResultHandler) BatchCreate(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	var req service.BatchCreateResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	summary, err := h.results.BatchCreate(c.Request.Context(), sc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Summary godoc
// @Summary Term results grouped by student with totals
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/summary [get]
func (h *ResultHandler) Summary(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	summaries, err := h.results.Summary(c.Request.Context(), sc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil, map[string]interface{}{
		"session": sc.Session.Name,
		"term":    sc.Term.Name,
	})
}

// UpdateScores godoc
// @Summary Apply a batch of score edits
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.UpdateScoresRequest true "Score edits"
// @Success 204
// @Security BearerAuth
// @Router /results/scores [put]
func (h *ResultHandler) UpdateScores(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	var req service.UpdateScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}
	if err := h.results.UpdateScores(c.Request.Context(), sc, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete one result row
// @Tags Results
// @Param id path string true "Result ID"
// @Success 204
// @Security BearerAuth
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}
	if err := h.results.Delete(c.Request.Context(), sc, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Download the term results as a CSV sheet
// @Tags Results
// @Produce text/csv
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /results/export [get]
func (h *ResultHandler) ExportCSV(c *gin.Context) {
	sc := schoolContextFrom(c)
	if sc == nil {
		response.Error(c, appErrors.ErrNoCurrentSession)
		return
	}

	data, err := h.results.ExportCSV(c.Request.Context(), sc)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("results-%s-%s.csv", sc.Session.ID, sc.Term.ID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}
