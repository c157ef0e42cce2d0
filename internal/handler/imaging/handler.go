package imaging

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/medvoice/backend/internal/model/imaging"
	imagingService "github.com/zhouzirui/medvoice/backend/internal/service/imaging"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// Analyzer 图片分析能力
type Analyzer interface {
	Analyze(ctx context.Context, in imagingService.Input) (*model.Analysis, error)
	MaxImageBytes() int
}

// Handler 图片分析的HTTP处理器
type Handler struct {
	analyzer Analyzer
}

// New 创建图片分析处理器
func New(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

// RegisterRoutes 注册图片分析路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/image-analysis", h.handleAnalyzeImage)
}

type analyzeRequest struct {
	Image    string `json:"image"`
	FileName string `json:"fileName"`
}

// bodyLimit base64 膨胀约 4/3，再留出 JSON 外壳的余量
func (h *Handler) bodyLimit() int64 {
	return int64(h.analyzer.MaxImageBytes())/3*4 + 64<<10
}

// handleAnalyzeImage 校验图片后转发给视觉模型，结果不落库
func (h *Handler) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var payload analyzeRequest
	if err := utils.DecodeJSONBody(w, r, &payload, h.bodyLimit()); err != nil {
		if utils.IsBodyTooLarge(err) {
			utils.RespondFailure(w, apperr.New(apperr.KindTooLarge, "imaging.request", "image exceeds size limit"))
			return
		}
		utils.RespondFailure(w, apperr.Invalid("imaging.request", "invalid request body"))
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), imagingService.Input{
		Image:    payload.Image,
		FileName: payload.FileName,
	})
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, analysis)
}
