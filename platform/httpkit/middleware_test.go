package httpkit

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type staticJWTConfig string

func (s staticJWTConfig) GetJWTAccessSecret() string { return string(s) }

const testSecret = staticJWTConfig("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/resource", handlers...)
	return engine
}

func TestAuthRequiredPopulatesIdentity(t *testing.T) {
	userID := uuid.New()
	var seen Identity

	engine := newTestEngine(AuthRequired(testSecret), func(c *gin.Context) {
		seen = MustGetIdentity(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "access",
		"name":  " Ana Petrova ",
		"roles": []string{"agent", "warehouse"},
		"exp":   time.Now().Add(time.Minute).Unix(),
	}))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if seen == nil || seen.UserID() != userID {
		t.Fatalf("expected identity for %s, got %+v", userID, seen)
	}
	if seen.DisplayName() != "Ana Petrova" {
		t.Fatalf("expected trimmed name, got %q", seen.DisplayName())
	}
	if !seen.HasRole("warehouse") || !seen.HasRole("agent") {
		t.Fatalf("expected both roles, got %v", seen.Roles())
	}
}

func TestAuthRequiredRejectsRefreshTokens(t *testing.T) {
	engine := newTestEngine(AuthRequired(testSecret), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAnyRole(t *testing.T) {
	cases := []struct {
		roles []string
		want  int
	}{
		{[]string{"manager"}, http.StatusNoContent},
		{[]string{"agent", "admin"}, http.StatusNoContent},
		{[]string{"agent"}, http.StatusForbidden},
		{nil, http.StatusForbidden},
	}

	for _, tc := range cases {
		engine := newTestEngine(func(c *gin.Context) {
			if tc.roles != nil {
				c.Set(ContextRolesKey, tc.roles)
			}
			c.Next()
		}, RequireAnyRole("admin", "manager"), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource", nil))
		if rec.Code != tc.want {
			t.Fatalf("roles %v: expected %d, got %d", tc.roles, tc.want, rec.Code)
		}
	}
}

func TestHandleErrorUsesKindStatus(t *testing.T) {
	engine := newTestEngine(func(c *gin.Context) {
		HandleError(c, apperr.InsufficientStock(2, 3))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if want := `"code":"insufficient_stock"`; !strings.Contains(body, want) {
		t.Fatalf("expected body to contain %s, got %s", want, body)
	}
	if want := `"available":2`; !strings.Contains(body, want) {
		t.Fatalf("expected body to contain %s, got %s", want, body)
	}
}

func TestRequestLoggerRecordsInternalCause(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestLogger(log))
	engine.GET("/resource", func(c *gin.Context) {
		cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")
		HandleError(c, apperr.Wrap(apperr.KindInternal, "internal error", cause).WithOp("orders.update_status"))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected driver text hidden from the response, got %s", rec.Body.String())
	}
	logged := buf.String()
	if !strings.Contains(logged, "msg=http_error") || !strings.Contains(logged, "connection refused") {
		t.Fatalf("expected http_error log with the cause, got %s", logged)
	}
	if !strings.Contains(logged, "orders.update_status") {
		t.Fatalf("expected operation in log, got %s", logged)
	}
}

func TestRequestLoggerSkipsClientErrors(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestLogger(log))
	engine.GET("/resource", func(c *gin.Context) {
		HandleError(c, apperr.Forbidden("not allowed"))
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resource", nil))

	if strings.Contains(buf.String(), "http_error") {
		t.Fatalf("expected no error log for a forbidden response, got %s", buf.String())
	}
}
