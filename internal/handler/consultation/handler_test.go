package consultation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	"github.com/zhouzirui/medvoice/backend/internal/middleware"
	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	repo "github.com/zhouzirui/medvoice/backend/internal/repository/consultation"
	consultationService "github.com/zhouzirui/medvoice/backend/internal/service/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/database"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

func setupRouter(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()
	db, err := database.Open(database.MemoryDSN(t.Name()), nil)
	require.NoError(t, err)
	store := repo.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))

	r := chi.NewRouter()
	r.Use(middleware.Identity(auth.HeaderVerifier{}, nil))
	New(consultationService.NewService(store, consultationService.ReadOwner)).RegisterRoutes(r)
	return r, db
}

func do(r http.Handler, method, target, caller string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(auth.IdentityHeader, caller)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createBody() map[string]any {
	return map[string]any{"notes": "headache", "selectedDoctor": doctor.Seed()[0]}
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/session-chat", "a@example.com", createBody())
	require.Equal(t, http.StatusCreated, resp.Code)

	var got model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.SessionID)
	assert.Equal(t, "a@example.com", got.CreatedBy)
	assert.Equal(t, "headache", got.Notes)
	assert.Nil(t, got.Report)
	assert.Equal(t, "General Physician", got.SelectedDoctor.Specialist)
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/session-chat", "", createBody())
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = do(r, http.MethodPost, "/session-chat", "a@example.com", map[string]any{"notes": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/session-chat", bytes.NewBufferString("{not json"))
	req.Header.Set(auth.IdentityHeader, "a@example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var failure utils.Failure
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failure))
	assert.Equal(t, "invalid_request", failure.Kind)
}

func TestGetSessions(t *testing.T) {
	r, _ := setupRouter(t)

	var ids []string
	for _, caller := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		resp := do(r, http.MethodPost, "/session-chat", caller, createBody())
		require.Equal(t, http.StatusCreated, resp.Code)
		var s model.Session
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		ids = append(ids, s.SessionID)
	}

	resp := do(r, http.MethodGet, "/session-chat?sessionId=all", "a@example.com", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].SessionID)
	assert.Equal(t, ids[0], list[1].SessionID)

	resp = do(r, http.MethodGet, "/session-chat?sessionId="+ids[0], "a@example.com", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var one model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	assert.Equal(t, ids[0], one.SessionID)

	resp = do(r, http.MethodGet, "/session-chat?sessionId="+ids[1], "a@example.com", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "null", resp.Body.String())

	resp = do(r, http.MethodGet, "/session-chat?sessionId=unknown", "a@example.com", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "null", resp.Body.String())

	resp = do(r, http.MethodGet, "/session-chat?sessionId=all", "c@example.com", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
}

func TestGetSessionsRequiresQuery(t *testing.T) {
	r, _ := setupRouter(t)

	resp := do(r, http.MethodGet, "/session-chat", "a@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(r, http.MethodGet, "/session-chat?sessionId=", "a@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStorageFailureIsReported(t *testing.T) {
	r, db := setupRouter(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp := do(r, http.MethodGet, "/session-chat?sessionId=all", "a@example.com", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	var failure utils.Failure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&failure))
	assert.Equal(t, "storage_failure", failure.Kind)
}
