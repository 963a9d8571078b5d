package handler

import (
	"strconv"

	"vtu-backend/internal/adapter/http/dto"
	"vtu-backend/internal/adapter/http/middleware"
	"vtu-backend/internal/core/ports"
	"vtu-backend/pkg/apperror"
	"vtu-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AnnouncementHandler serves broadcast announcements. Reads are open to any
// signed-in user; writes sit behind the admin group.
type AnnouncementHandler struct {
	svc ports.AnnouncementService
}

func NewAnnouncementHandler(svc ports.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

// Live handles GET /api/v1/broadcast.
func (h *AnnouncementHandler) Live(c *gin.Context) {
	list, err := h.svc.Live(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// List handles GET /api/v1/admin/broadcasts.
func (h *AnnouncementHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/v1/admin/broadcasts.
func (h *AnnouncementHandler) Create(c *gin.Context) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AnnouncementCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	a, err := h.svc.Create(c.Request.Context(), admin, ports.AnnouncementInput{
		Title:    req.Title,
		Message:  req.Message,
		Level:    req.Level,
		IsActive: active,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Update handles PATCH /api/v1/admin/broadcasts/:id.
func (h *AnnouncementHandler) Update(c *gin.Context) {
	admin, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("invalid announcement id"))
		return
	}

	var req dto.AnnouncementUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	a, err := h.svc.Update(c.Request.Context(), admin, id, ports.AnnouncementPatch{
		Title:       req.Title,
		Message:     req.Message,
		Level:       req.Level,
		IsActive:    req.IsActive,
		StartsAt:    req.StartsAt.Time,
		StartsAtSet: req.StartsAt.Set,
		EndsAt:      req.EndsAt.Time,
		EndsAtSet:   req.EndsAt.Set,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}
