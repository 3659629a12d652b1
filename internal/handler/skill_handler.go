package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/auth"
	"github.com/skillswap/service-booking/pkg/middleware"
	"github.com/skillswap/service-booking/pkg/response"
)

// SkillHandler exposes the local skill projection so clients can price a session before booking.
type SkillHandler struct {
	service *application.SkillService
}

func NewSkillHandler(service *application.SkillService) *SkillHandler {
	return &SkillHandler{service: service}
}

func (h *SkillHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	skills := r.Group("/api/v1/skills")
	skills.Use(middleware.AuthMiddleware(jwtManager))
	{
		skills.GET("", h.ListProviderSkills)
		skills.GET("/:id", h.GetSkill)
	}
}

// GetSkill handles GET /api/v1/skills/:id.
func (h *SkillHandler) GetSkill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid skill ID")
		return
	}

	result, err := h.service.GetSkill(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListProviderSkills handles GET /api/v1/skills?provider_id=.
func (h *SkillHandler) ListProviderSkills(c *gin.Context) {
	providerID, err := uuid.Parse(c.Query("provider_id"))
	if err != nil {
		response.BadRequest(c, "provider_id is required")
		return
	}

	result, err := h.service.ListProviderSkills(c.Request.Context(), providerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
