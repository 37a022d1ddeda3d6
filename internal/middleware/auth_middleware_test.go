package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	token  string
	caller *policy.Caller
	err    error
}

func (r stubResolver) ResolveToken(_ context.Context, token string) (*policy.Caller, error) {
	if r.err != nil {
		return nil, r.err
	}
	if token != r.token {
		return nil, apperror.Unauthorized("Invalid token")
	}
	return r.caller, nil
}

func authRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", mw, func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, caller.Username)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	resolver := stubResolver{
		token:  "good-token",
		caller: &policy.Caller{UserID: uuid.New(), Username: "alice"},
	}

	testCases := []struct {
		name       string
		optional   bool
		header     string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{"required: bearer header", false, "Bearer good-token", "", http.StatusOK, "alice"},
		{"required: lower-case scheme", false, "bearer good-token", "", http.StatusOK, "alice"},
		{"required: cookie fallback", false, "", "good-token", http.StatusOK, "alice"},
		{"required: missing", false, "", "", http.StatusUnauthorized, "Authentication required"},
		{"required: wrong scheme", false, "Basic good-token", "", http.StatusUnauthorized, "Authentication required"},
		{"required: bad token", false, "Bearer nope", "", http.StatusUnauthorized, "Invalid token"},
		{"optional: bearer header", true, "Bearer good-token", "", http.StatusOK, "alice"},
		{"optional: missing", true, "", "", http.StatusOK, "anonymous"},
		{"optional: bad token", true, "Bearer nope", "", http.StatusOK, "anonymous"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mw := RequireAuth(resolver)
			if tc.optional {
				mw = OptionalAuth(resolver)
			}

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			authRouter(mw).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestRequireAuth_ResolverFailures(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"removed account", apperror.Unauthorized("User no longer exists"), http.StatusUnauthorized, "User no longer exists"},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError, "server_error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := stubResolver{token: "good-token", err: tc.err}

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer good-token")
			w := httptest.NewRecorder()
			authRouter(RequireAuth(resolver)).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestCallerFrom_IgnoresForeignValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, CallerFrom(c))
	c.Set(callerKey, errors.New("not a caller"))
	assert.Nil(t, CallerFrom(c))
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, production := range []bool{false, true} {
		router := gin.New()
		router.Use(SecurityHeadersMiddleware(), HSTSMiddleware(production))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		if production {
			assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
		} else {
			assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		}
	}
}
