package call

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	callService "github.com/zhouzirui/medvoice/backend/internal/service/call"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

const (
	readTimeout   = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeTimeout  = 10 * time.Second
	eventBuffer   = 64
	maxFrameBytes = 64 << 10
)

// Sessions 读取调用方可见的会话
type Sessions interface {
	Get(ctx context.Context, caller, sessionID string) (*model.Session, error)
}

// Assistants 按医生性别选择语音助手
type Assistants struct {
	Male   string
	Female string
}

// For 返回医生对应的语音助手 ID
func (a Assistants) For(d doctor.Doctor) string {
	if d.IsMale() {
		return a.Male
	}
	return a.Female
}

// WebSocketHandler 语音通话桥接：浏览器转发语音 SDK 的事件，服务端汇总成转写并生成报告
type WebSocketHandler struct {
	sessions   Sessions
	reports    callService.Attacher
	assistants Assistants
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler 创建通话桥接处理器
func NewWebSocketHandler(sessions Sessions, reports callService.Attacher, assistants Assistants, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{
		sessions:   sessions,
		reports:    reports,
		assistants: assistants,
		log:        log.Named("call"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册通话路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/session-chat/{sessionId}/call", h.handleWebSocket)
}

// inboundFrame 语音 SDK 事件，transcript 事件才带 role/transcript
type inboundFrame struct {
	Type           string `json:"type"`
	Role           string `json:"role"`
	TranscriptType string `json:"transcriptType"`
	Transcript     string `json:"transcript"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// toEvent 把 SDK 帧翻译成通话事件，无关帧返回 false
func toEvent(frame inboundFrame) (callService.Event, bool) {
	switch frame.Type {
	case "call-start":
		return callService.Started(), true
	case "call-end":
		return callService.Ended(), true
	case "transcript":
		role := strings.ToLower(strings.TrimSpace(frame.Role))
		if role != model.RoleUser && role != model.RoleAssistant {
			return callService.Event{}, false
		}
		if frame.TranscriptType == "final" {
			return callService.Final(role, frame.Transcript), true
		}
		return callService.Partial(role, frame.Transcript), true
	default:
		return callService.Event{}, false
	}
}

// handleWebSocket 处理一次通话的WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.RequireIdentity(r.Context())
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionId")
	session, err := h.sessions.Get(r.Context(), caller, sessionID)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	if session == nil {
		utils.RespondFailure(w, apperr.New(apperr.KindNotFound, "call.connect", "session not found"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := h.log.With(zap.String("session_id", sessionID))
	log.Info("call connected")

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	if err := h.send(conn, outgoingMessage{
		Type:      "connected",
		SessionID: sessionID,
		Data: map[string]any{
			"assistantId": h.assistants.For(session.SelectedDoctor),
			"doctor":      session.SelectedDoctor.Specialist,
		},
	}); err != nil {
		log.Warn("send connected failed", zap.Error(err))
		return
	}

	source := callService.NewChannelSource(eventBuffer)
	go h.readLoop(ctx, conn, source, log)

	report, err := callService.NewCall(source, h.reports, caller, sessionID).Run(ctx)
	if err != nil {
		log.Warn("call finished without report", zap.Error(err))
		msg := apperr.Message(err)
		if errors.Is(err, callService.ErrCallNotEnded) {
			msg = "call closed before it ended"
		}
		h.send(conn, outgoingMessage{
			Type:      "error",
			SessionID: sessionID,
			Error:     msg,
			Kind:      apperr.KindOf(err).String(),
		})
		h.close(conn, websocket.CloseNormalClosure, "no report")
		return
	}

	log.Info("call report attached")
	h.send(conn, outgoingMessage{Type: "report", SessionID: sessionID, Data: report})
	h.close(conn, websocket.CloseNormalClosure, "report attached")
}

// readLoop 读取浏览器帧并发布到事件源，连接断开时结束事件流
func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, source *callService.ChannelSource, log *zap.Logger) {
	defer source.Finish()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		ev, ok := toEvent(frame)
		if !ok {
			continue
		}
		if err := source.Publish(ctx, ev); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (h *WebSocketHandler) close(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeTimeout))
}
