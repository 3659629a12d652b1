package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/auth"
	"github.com/skillswap/service-booking/pkg/middleware"
	"github.com/skillswap/service-booking/pkg/response"
)

// AdminHandler handles admin HTTP requests for bookings and wallets.
type AdminHandler struct {
	bookings *application.BookingService
	wallets  *application.WalletService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookings *application.BookingService, wallets *application.WalletService) *AdminHandler {
	return &AdminHandler{bookings: bookings, wallets: wallets}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/wallets/:userId/grants", h.GrantCredits)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// GrantCredits handles POST /api/v1/admin/wallets/:userId/grants.
func (h *AdminHandler) GrantCredits(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user ID")
		return
	}
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	wallet, err := h.wallets.GrantCredits(c.Request.Context(), adminID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, wallet)
}
