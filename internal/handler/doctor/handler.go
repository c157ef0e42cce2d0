package doctor

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medvoice/backend/internal/model/doctor"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// Handler 医生目录的HTTP处理器
type Handler struct {
	doctors doctor.Store
}

// New 创建医生目录处理器
func New(doctors doctor.Store) *Handler {
	return &Handler{doctors: doctors}
}

// RegisterRoutes 注册医生目录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/doctors", h.handleListDoctors)
}

// handleListDoctors 列出所有可选的医生
func (h *Handler) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.doctors.List())
}
