package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

const testSecret = "admin-secret"

func adminToken(t *testing.T, secret, role, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"sub":  sub,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminAuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": ActorID(c)})
	})
	return r
}

func doAuthRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth_ValidToken(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(r, "Bearer "+adminToken(t, testSecret, "admin", "admin-1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "admin-1")
}

func TestAdminAuth_MissingToken(t *testing.T) {
	r := newAuthRouter()
	require.Equal(t, http.StatusUnauthorized, doAuthRequest(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, doAuthRequest(r, "Bearer ").Code)
	require.Equal(t, http.StatusUnauthorized, doAuthRequest(r, "Basic abc").Code)
}

func TestAdminAuth_WrongSecret(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(r, "Bearer "+adminToken(t, "other-secret", "admin", "admin-1"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_NonAdminRole(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(r, "Bearer "+adminToken(t, testSecret, "user", "user-1"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_MissingSubject(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(r, "Bearer "+adminToken(t, testSecret, "admin", ""))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorID_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Empty(t, ActorID(c))
}
