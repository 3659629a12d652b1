package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/auth"
	"github.com/skillswap/service-booking/pkg/middleware"
	"github.com/skillswap/service-booking/pkg/response"
)

// WalletHandler serves the caller's own credit balance and history.
type WalletHandler struct {
	service *application.WalletService
}

func NewWalletHandler(service *application.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

func (h *WalletHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	wallet := r.Group("/api/v1/wallet")
	wallet.Use(middleware.AuthMiddleware(jwtManager))
	{
		wallet.GET("", h.GetBalance)
		wallet.GET("/transactions", h.GetHistory)
	}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	wallet, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, wallet)
}

// GetHistory handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.GetHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
