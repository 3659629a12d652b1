package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/service-booking/pkg/auth"
)

// newRouter registers every handler with nil services; each case below is rejected before
// a service would be reached.
func newRouter(m *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("")
	NewBookingHandler(nil).RegisterRoutes(api, m)
	NewWalletHandler(nil).RegisterRoutes(api, m)
	NewAdminHandler(nil, nil).RegisterRoutes(api, m)
	NewSkillHandler(nil).RegisterRoutes(api, m)
	return r
}

func TestRoutesRejectBeforeReachingServices(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	r := newRouter(m)

	userToken, err := m.GenerateAccessToken(uuid.New(), auth.RoleUser)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		status int
	}{
		{"no token", http.MethodGet, "/api/v1/bookings", "", "", http.StatusUnauthorized},
		{"wallet needs token", http.MethodGet, "/api/v1/wallet", "", "", http.StatusUnauthorized},
		{"bad booking id", http.MethodPost, "/api/v1/bookings/not-a-uuid/confirm", "", userToken, http.StatusBadRequest},
		{"bad role filter", http.MethodGet, "/api/v1/bookings?as=admin", "", userToken, http.StatusBadRequest},
		{"create without body", http.MethodPost, "/api/v1/bookings", "{}", userToken, http.StatusBadRequest},
		{"reschedule without slot", http.MethodPost, "/api/v1/bookings/" + uuid.NewString() + "/reschedule", `{"reason":"x"}`, userToken, http.StatusBadRequest},
		{"admin only", http.MethodGet, "/api/v1/admin/bookings", "", userToken, http.StatusForbidden},
		{"skills need provider", http.MethodGet, "/api/v1/skills", "", userToken, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAdminGrantRejectsBadUserID(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	r := newRouter(m)
	adminToken, err := m.GenerateAccessToken(uuid.New(), auth.RoleAdmin)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/wallets/abc/grants",
		strings.NewReader(`{"bucket":"bonus","amount":"5"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string][2]int{
		"":                  {1, 20},
		"page=3&limit=50":   {3, 50},
		"page=0&limit=0":    {1, 20},
		"page=-2&limit=500": {1, 100},
		"page=x&limit=y":    {1, 20},
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		page, limit := parsePagination(c)
		assert.Equal(t, want[0], page, query)
		assert.Equal(t, want[1], limit, query)
	}
}
