package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skillswap/service-booking/internal/application"
	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/pkg/auth"
	"github.com/skillswap/service-booking/pkg/middleware"
	"github.com/skillswap/service-booking/pkg/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/confirm", h.ConfirmBooking)
		bookings.POST("/:id/reject", h.RejectBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/complete", h.CompleteBooking)
		bookings.POST("/:id/reschedule", h.ProposeReschedule)
		bookings.POST("/:id/reschedule/accept", h.AcceptReschedule)
		bookings.POST("/:id/reschedule/decline", h.DeclineReschedule)
	}
}

// CreateBooking handles POST /api/v1/bookings. The caller is the learner.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings?as=learner|provider.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}

	as := bookingDomain.Party(c.DefaultQuery("as", string(bookingDomain.PartyLearner)))
	if as != bookingDomain.PartyLearner && as != bookingDomain.PartyProvider {
		response.BadRequest(c, "as must be learner or provider")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.ListBookings(c.Request.Context(), userID, as, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id. Parties and admins only.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	role, _ := middleware.GetUserRole(c)

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, userID, role == auth.RoleAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmBooking handles POST /api/v1/bookings/:id/confirm (provider accepts).
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.ConfirmBooking(c.Request.Context(), bookingID, userID))
}

// RejectBooking handles POST /api/v1/bookings/:id/reject.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.RejectBooking(c.Request.Context(), bookingID, userID, reason(c)))
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.CancelBooking(c.Request.Context(), bookingID, userID, reason(c)))
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.CompleteBooking(c.Request.Context(), bookingID, userID))
}

// ProposeReschedule handles POST /api/v1/bookings/:id/reschedule.
func (h *BookingHandler) ProposeReschedule(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}

	var req application.ProposeRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.ProposeReschedule(c.Request.Context(), bookingID, userID, req))
}

// AcceptReschedule handles POST /api/v1/bookings/:id/reschedule/accept.
func (h *BookingHandler) AcceptReschedule(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.AcceptReschedule(c.Request.Context(), bookingID, userID))
}

// DeclineReschedule handles POST /api/v1/bookings/:id/reschedule/decline.
func (h *BookingHandler) DeclineReschedule(c *gin.Context) {
	bookingID, userID, ok := bookingAndActor(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.DeclineReschedule(c.Request.Context(), bookingID, userID, reason(c)))
}

func (h *BookingHandler) respond(c *gin.Context) func(*application.BookingDTO, error) {
	return func(result *application.BookingDTO, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
	}
}

// bookingAndActor parses :id and the caller. It writes the error response itself.
func bookingAndActor(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	return bookingID, userID, true
}

// reason reads an optional {"reason": "..."} body.
func reason(c *gin.Context) string {
	var body application.ReasonRequest
	_ = c.ShouldBindJSON(&body)
	return body.Reason
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
