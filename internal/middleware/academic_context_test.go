package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	"github.com/westgate-schools/sms-api/internal/service"
	"github.com/westgate-schools/sms-api/pkg/response"
)

type sessionReaderStub struct {
	current *models.AcademicSession
}

func (s *sessionReaderStub) List(ctx context.Context) ([]models.AcademicSession, error) {
	return nil, nil
}

func (s *sessionReaderStub) FindByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	return nil, sql.ErrNoRows
}

func (s *sessionReaderStub) FindCurrent(ctx context.Context) (*models.AcademicSession, error) {
	if s.current == nil {
		return nil, sql.ErrNoRows
	}
	return s.current, nil
}

func (s *sessionReaderStub) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return false, nil
}

func (s *sessionReaderStub) Create(ctx context.Context, session *models.AcademicSession) error {
	return nil
}

func (s *sessionReaderStub) Update(ctx context.Context, session *models.AcademicSession) error {
	return nil
}

func (s *sessionReaderStub) SetCurrent(ctx context.Context, id string) error { return nil }

func (s *sessionReaderStub) Delete(ctx context.Context, id string) error { return nil }

type termReaderStub struct {
	current *models.AcademicTerm
}

func (s *termReaderStub) List(ctx context.Context) ([]models.AcademicTerm, error) {
	return nil, nil
}

func (s *termReaderStub) FindByID(ctx context.Context, id string) (*models.AcademicTerm, error) {
	return nil, sql.ErrNoRows
}

func (s *termReaderStub) FindCurrent(ctx context.Context) (*models.AcademicTerm, error) {
	if s.current == nil {
		return nil, sql.ErrNoRows
	}
	return s.current, nil
}

func (s *termReaderStub) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return false, nil
}

func (s *termReaderStub) Create(ctx context.Context, term *models.AcademicTerm) error { return nil }

func (s *termReaderStub) Update(ctx context.Context, term *models.AcademicTerm) error { return nil }

func (s *termReaderStub) SetCurrent(ctx context.Context, id string) error { return nil }

func (s *termReaderStub) Delete(ctx context.Context, id string) error { return nil }

func newContextRouter(session *models.AcademicSession, term *models.AcademicTerm) *gin.Engine {
	academic := service.NewAcademicService(
		&sessionReaderStub{current: session},
		&termReaderStub{current: term},
		service.NewCacheService(nil, nil, 0, nil, false),
		nil, nil,
	)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/invoices", AcademicContext(academic, zap.NewNop()), func(c *gin.Context) {
		sc := c.MustGet(ContextSchoolKey).(*models.SchoolContext)
		response.JSON(c, http.StatusOK, gin.H{
			"session": sc.Session.Name,
			"term":    sc.Term.Name,
		}, nil)
	})
	return r
}

func TestAcademicContextSetsResolvedPair(t *testing.T) {
	r := newContextRouter(
		&models.AcademicSession{ID: "s1", Name: "2025/2026", Current: true},
		&models.AcademicTerm{ID: "t1", Name: "First Term", Current: true},
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Session string `json:"session"`
			Term    string `json:"term"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2025/2026", body.Data.Session)
	assert.Equal(t, "First Term", body.Data.Term)
}

func TestAcademicContextAbortsWhenSessionUnset(t *testing.T) {
	r := newContextRouter(nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "CURRENT_SESSION_NOT_SET", body.Error.Code)
}

func TestAcademicContextAbortsWhenTermUnset(t *testing.T) {
	r := newContextRouter(&models.AcademicSession{ID: "s1", Name: "2025/2026", Current: true}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "CURRENT_TERM_NOT_SET", body.Error.Code)
}
