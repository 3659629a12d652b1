package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillswap/service-booking/pkg/domain"
)

// Envelope is the JSON body returned by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: totalPages},
	})
}

// BadRequest writes a 400 response.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Error: &ErrorBody{Code: "BAD_REQUEST", Message: msg}})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Error: &ErrorBody{Code: string(domain.ErrCodeUnauthorized), Message: msg}})
}

// Error maps err to a status code. Domain errors keep their message; anything else becomes
// an opaque 500.
func Error(c *gin.Context, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
			Error: &ErrorBody{Code: "INTERNAL", Message: "internal server error"},
		})
		return
	}
	c.AbortWithStatusJSON(StatusFor(de.Code), Envelope{Error: &ErrorBody{Code: string(de.Code), Message: de.Message}})
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeValidation, domain.ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeConflict:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
