package report

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medvoice/backend/internal/auth"
	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Attacher 生成并保存报告
type Attacher interface {
	Attach(ctx context.Context, caller, sessionID string, transcript model.Transcript) (*model.Report, error)
}

// Handler 报告生成的HTTP处理器
type Handler struct {
	reports Attacher
}

// New 创建报告处理器
func New(reports Attacher) *Handler {
	return &Handler{reports: reports}
}

// RegisterRoutes 注册报告路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/medical-report", h.handleGenerateReport)
}

type generateRequest struct {
	SessionID string           `json:"sessionId"`
	Messages  model.Transcript `json:"messages"`
	// 客户端回传的会话详情，只以服务端存储为准
	SessionDetail json.RawMessage `json:"sessionDetail,omitempty"`
}

// handleGenerateReport 为通话记录生成报告并写回会话
func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	caller, err := auth.RequireIdentity(r.Context())
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	var payload generateRequest
	if err := utils.DecodeJSONBody(w, r, &payload, maxBodyBytes); err != nil {
		if utils.IsBodyTooLarge(err) {
			utils.RespondFailure(w, apperr.New(apperr.KindTooLarge, "report.request", "request body too large"))
			return
		}
		utils.RespondFailure(w, apperr.Invalid("report.request", "invalid request body"))
		return
	}

	report, err := h.reports.Attach(r.Context(), caller, payload.SessionID, payload.Messages)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, report)
}
