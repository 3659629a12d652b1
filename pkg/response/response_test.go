package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/skillswap/service-booking/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMapsDomainCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewNotFoundError("Booking", "1"), http.StatusNotFound, "NOT_FOUND"},
		{domain.NewValidationError("bad"), http.StatusUnprocessableEntity, "VALIDATION"},
		{domain.NewInvalidStateError("completed", "cancelled"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{domain.NewForbiddenError("no"), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("wrapped: %w", domain.NewConflictError("taken")), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("db down"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Error(c, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.code, body.Error.Code)
	}
}

func TestPaginatedMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []int{1}, 21, 2, 10)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Meta.TotalPages)
}
