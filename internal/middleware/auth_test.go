package middleware

import (
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(gates ...gin.HandlerFunc) *gin.Engine {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(cfg)}, gates...)
	handlers = append(handlers, func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		c.String(http.StatusOK, user.Participant().String())
	})
	r.GET("/protected", handlers...)
	return r
}

func token(t *testing.T, p model.Participant, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	tok, err := util.GenerateJWT(p, role, "user@example.com", secret, ttl)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	student := model.StudentParticipant(7)

	w := do(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/protected", token(t, student, model.RoleStudent, testSecret, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student:7", w.Body.String())

	w = do(r, "/protected?token="+token(t, student, model.RoleStudent, testSecret, time.Hour), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "/protected", token(t, student, model.RoleStudent, "other-secret", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/protected", token(t, student, model.RoleStudent, testSecret, -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/protected", token(t, model.Participant{Kind: "robot", RefID: 1}, model.RoleStudent, testSecret, time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	student := token(t, model.StudentParticipant(1), model.RoleStudent, testSecret, time.Hour)
	teacher := token(t, model.AdminParticipant(2), model.RoleTeacher, testSecret, time.Hour)
	mainAdmin := token(t, model.AdminParticipant(3), model.RoleMainAdmin, testSecret, time.Hour)

	cases := []struct {
		name string
		gate gin.HandlerFunc
		tok  string
		want int
	}{
		{"student passes student gate", StudentOnly(), student, http.StatusOK},
		{"teacher blocked from student gate", StudentOnly(), teacher, http.StatusForbidden},
		{"teacher passes admin gate", AdminOnly(), teacher, http.StatusOK},
		{"student blocked from admin gate", AdminOnly(), student, http.StatusForbidden},
		{"main admin passes admin gate", AdminOnly(), mainAdmin, http.StatusOK},
		{"teacher blocked from main admin gate", MainAdminOnly(), teacher, http.StatusForbidden},
		{"main admin passes main admin gate", MainAdminOnly(), mainAdmin, http.StatusOK},
		{"main admin passes teacher only gate", RoleMiddleware(model.RoleTeacher), mainAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newRouter(tc.gate), "/protected", tc.tok)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRoleMiddlewareWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/open", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, "/open", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
