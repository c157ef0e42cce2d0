package call

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	"github.com/zhouzirui/medvoice/backend/internal/middleware"
	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	callService "github.com/zhouzirui/medvoice/backend/internal/service/call"
)

type stubSessions struct {
	sessions map[string]*model.Session
}

func (s stubSessions) Get(_ context.Context, caller, sessionID string) (*model.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok || session.CreatedBy != caller {
		return nil, nil
	}
	return session, nil
}

type recordingAttacher struct {
	mu         sync.Mutex
	calls      int
	transcript model.Transcript
}

func (a *recordingAttacher) Attach(_ context.Context, caller, sessionID string, transcript model.Transcript) (*model.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.transcript = transcript
	return &model.Report{SessionID: sessionID, User: caller, ChiefComplaint: "headache", Severity: model.SeverityMild}, nil
}

func newServer(t *testing.T, attacher callService.Attacher) *httptest.Server {
	t.Helper()
	male := doctor.Seed()[1]
	male.Gender = doctor.GenderMale
	sessions := stubSessions{sessions: map[string]*model.Session{
		"s-1": {SessionID: "s-1", CreatedBy: "a@example.com", SelectedDoctor: male},
	}}

	r := chi.NewRouter()
	r.Use(middleware.Identity(auth.HeaderVerifier{}, nil))
	NewWebSocketHandler(sessions, attacher, Assistants{Male: "male-assistant", Female: "female-assistant"}, nil).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID, caller string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/session-chat/" + sessionID + "/call"
	header := http.Header{}
	header.Set(auth.IdentityHeader, caller)
	return websocket.DefaultDialer.Dial(url, header)
}

func TestCallBridgeProducesReport(t *testing.T) {
	attacher := &recordingAttacher{}
	srv := newServer(t, attacher)

	conn, _, err := dial(t, srv, "s-1", "a@example.com")
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var connected outgoingMessage
	require.NoError(t, conn.ReadJSON(&connected))
	assert.Equal(t, "connected", connected.Type)
	data := connected.Data.(map[string]any)
	assert.Equal(t, "male-assistant", data["assistantId"])

	frames := []inboundFrame{
		{Type: "call-start"},
		{Type: "speech-update"},
		{Type: "transcript", Role: "assistant", TranscriptType: "partial", Transcript: "Hel"},
		{Type: "transcript", Role: "assistant", TranscriptType: "final", Transcript: "Hello, what brings you in?"},
		{Type: "transcript", Role: "user", TranscriptType: "final", Transcript: "A headache."},
		{Type: "call-end"},
		{Type: "transcript", Role: "user", TranscriptType: "final", Transcript: "Too late."},
	}
	for _, frame := range frames {
		require.NoError(t, conn.WriteJSON(frame))
	}

	var result outgoingMessage
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, "report", result.Type)
	assert.Equal(t, "s-1", result.SessionID)

	attacher.mu.Lock()
	defer attacher.mu.Unlock()
	assert.Equal(t, 1, attacher.calls)
	assert.Equal(t, model.Transcript{
		{Role: model.RoleAssistant, Text: "Hello, what brings you in?"},
		{Role: model.RoleUser, Text: "A headache."},
	}, attacher.transcript)
}

func TestCallBridgeUnknownSession(t *testing.T) {
	srv := newServer(t, &recordingAttacher{})

	_, resp, err := dial(t, srv, "s-1", "b@example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToEvent(t *testing.T) {
	ev, ok := toEvent(inboundFrame{Type: "transcript", Role: "User", TranscriptType: "final", Transcript: "hi"})
	assert.True(t, ok)
	assert.Equal(t, callService.Final(model.RoleUser, "hi"), ev)

	_, ok = toEvent(inboundFrame{Type: "transcript", Role: "system", TranscriptType: "final", Transcript: "x"})
	assert.False(t, ok)

	_, ok = toEvent(inboundFrame{Type: "volume-level"})
	assert.False(t, ok)
}

func TestAssistantsForGender(t *testing.T) {
	a := Assistants{Male: "m", Female: "f"}
	assert.Equal(t, "m", a.For(doctor.Doctor{Gender: doctor.GenderMale}))
	assert.Equal(t, "f", a.For(doctor.Doctor{Gender: doctor.GenderFemale}))
}
