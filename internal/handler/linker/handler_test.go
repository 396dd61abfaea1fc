package linker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository/memory"
	"github.com/jwalitptl/wellness-api/internal/service/linker"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

type brokenPatients struct{}

func (brokenPatients) Get(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, errors.New("unused")
}

func (brokenPatients) List(context.Context) ([]*model.Patient, error) {
	return nil, apperrors.NewPersistence("list patients", errors.New("connection refused"))
}

func setup(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	store.AddPatient(model.Patient{FirstName: "Ana", LastName: "Lopez", Email: "ana@x.com", Phone: "9499973988"})
	store.AddIntake(model.Intake{FirstName: "Ana", LastName: "Lopez", Email: "ANA@x.com "})
	store.AddIntake(model.Intake{FirstName: "Zed", LastName: "Nobody", Email: "zed@x.com"})

	svc := linker.NewService(store.Patients(), store.Intakes(), nil, logger.Nop(), metrics.New("test", nil))
	r := gin.New()
	NewHandler(svc, logger.Nop()).RegisterRoutes(r.Group("/admin"))
	return r, store
}

func do(r *gin.Engine, method string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/admin/link-intakes", nil))
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestPreviewThenApply(t *testing.T) {
	r, _ := setup(t)

	w, body := do(r, http.MethodGet)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preview", body["mode"])
	summary := body["summary"].(map[string]interface{})
	assert.EqualValues(t, 2, summary["total_unlinked"])
	assert.EqualValues(t, 1, summary["matched_count"])
	assert.EqualValues(t, 0, summary["linked_count"])

	// Preview writes nothing, so a second preview sees the same state.
	_, again := do(r, http.MethodGet)
	assert.Equal(t, summary, again["summary"])

	w, body = do(r, http.MethodPost)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", body["mode"])
	assert.EqualValues(t, 1, body["summary"].(map[string]interface{})["linked_count"])

	matched := body["matched"].([]interface{})
	require.Len(t, matched, 1)
	assert.Equal(t, "email", matched[0].(map[string]interface{})["match_method"])

	_, body = do(r, http.MethodGet)
	assert.EqualValues(t, 1, body["summary"].(map[string]interface{})["total_unlinked"])
}

func TestLinkRunStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	svc := linker.NewService(brokenPatients{}, store.Intakes(), nil, logger.Nop(), metrics.New("test", nil))
	r := gin.New()
	NewHandler(svc, logger.Nop()).RegisterRoutes(r.Group("/admin"))

	w, body := do(r, http.MethodPost)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, body["error"])
	assert.NotContains(t, body["error"], "connection refused")
}
