package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lumenlearn/assessment-backend/internal/platform/ctxutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authRouter(captured *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := NewAuthMiddleware(logger.NewNop(), testSecret)
	r.GET("/protected", auth.RequireAuth(), func(c *gin.Context) {
		*captured = ctxutil.UserID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	var captured uuid.UUID
	r := authRouter(&captured)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if captured != userID {
		t.Fatalf("context user = %s, want %s", captured, userID)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	var captured uuid.UUID
	r := authRouter(&captured)

	cases := map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + signToken(t, "other-secret", uuid.New().String()),
		"bad subject":  "Bearer " + signToken(t, testSecret, "not-a-uuid"),
		"garbage":      "Bearer not.a.token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}
