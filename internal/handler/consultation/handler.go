package consultation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	consultationService "github.com/zhouzirui/medvoice/backend/internal/service/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// AllSessions 是查询当前用户全部会话的哨兵值
const AllSessions = "all"

const maxBodyBytes = 64 << 10

// Handler 会话服务的HTTP处理器
type Handler struct {
	sessions *consultationService.Service
}

// New 创建会话处理器
func New(sessions *consultationService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session-chat", h.handleCreateSession)
	r.Get("/session-chat", h.handleGetSessions)
}

// handleCreateSession 创建会话，所有者取自请求身份
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.RequireIdentity(r.Context())
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	var payload consultationService.CreateInput
	if err := utils.DecodeJSONBody(w, r, &payload, maxBodyBytes); err != nil {
		if utils.IsBodyTooLarge(err) {
			utils.RespondFailure(w, apperr.New(apperr.KindTooLarge, "session.create", "request body too large"))
			return
		}
		utils.RespondFailure(w, apperr.Invalid("session.create", "invalid request body"))
		return
	}

	session, err := h.sessions.Create(r.Context(), owner, payload)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleGetSessions sessionId=all 返回列表，其余返回单条记录或 null
func (h *Handler) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.RequireIdentity(r.Context())
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	query := r.URL.Query()
	if !query.Has("sessionId") {
		utils.RespondFailure(w, apperr.Invalid("session.get", "sessionId query parameter is required"))
		return
	}
	sessionID := strings.TrimSpace(query.Get("sessionId"))
	if sessionID == "" {
		utils.RespondFailure(w, apperr.Invalid("session.get", "sessionId query parameter is required"))
		return
	}

	if sessionID == AllSessions {
		sessions, err := h.sessions.ListForOwner(r.Context(), caller)
		if err != nil {
			utils.RespondFailure(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, sessions)
		return
	}

	session, err := h.sessions.Get(r.Context(), caller, sessionID)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	// 没有可见记录时返回 null
	utils.RespondJSON(w, http.StatusOK, session)
}
