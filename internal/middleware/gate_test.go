package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-admin/internal/model"
	"school-admin/internal/rbac"
	"school-admin/internal/token"
)

func newTestGate() (*Gate, *token.Codec) {
	codec := token.NewCodec("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
	gate := NewGate(codec, rbac.NewDefaultEngine(nil), "/login", "/forbidden")
	return gate, codec
}

func signAccess(t *testing.T, codec *token.Codec, role model.Role, teacherRole model.TeacherRole) string {
	t.Helper()

	signed, err := codec.SignAccess(model.User{
		ID:          "u-1",
		Username:    "budi",
		Role:        role,
		TeacherRole: teacherRole,
	})
	require.NoError(t, err)
	return signed
}

func gateRequest(gate *Gate, method string, path string, accessToken string) (*httptest.ResponseRecorder, *model.AuthClaims) {
	var seen *model.AuthClaims
	handler := gate.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, path, nil)
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessToken})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestGateNoCookieRedirectsDashboardToLogin(t *testing.T) {
	gate, _ := newTestGate()

	rec, _ := gateRequest(gate, http.MethodGet, "/dashboard/students", "")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGateNoCookieOnAPIReturnsJSON401(t *testing.T) {
	gate, _ := newTestGate()

	rec, _ := gateRequest(gate, http.MethodGet, "/api/v1/students", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestGateInvalidTokenRedirectsToLogin(t *testing.T) {
	gate, _ := newTestGate()

	rec, _ := gateRequest(gate, http.MethodGet, "/dashboard/students", "tampered-token")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGateEmptyCookieTreatedAsMissing(t *testing.T) {
	gate, _ := newTestGate()

	rec, _ := gateRequest(gate, http.MethodGet, "/dashboard", "   ")

	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGateExpiredTokenRejected(t *testing.T) {
	gate, _ := newTestGate()
	expired := token.NewCodec("access-secret", "refresh-secret", -1*time.Minute, time.Minute)

	rec, _ := gateRequest(gate, http.MethodGet, "/dashboard",
		signAccess(t, expired, model.RoleAdmin, ""))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGateDeniedDashboardRedirectsToForbidden(t *testing.T) {
	gate, codec := newTestGate()

	rec, _ := gateRequest(gate, http.MethodGet, "/dashboard/users",
		signAccess(t, codec, model.RoleTeacher, ""))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/forbidden", rec.Header().Get("Location"))
}

func TestGateDeniedAPIReturnsJSON403(t *testing.T) {
	gate, codec := newTestGate()

	rec, _ := gateRequest(gate, http.MethodPost, "/api/v1/students",
		signAccess(t, codec, model.RoleTeacher, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestGateAllowedRequestCarriesClaims(t *testing.T) {
	gate, codec := newTestGate()

	rec, claims := gateRequest(gate, http.MethodGet, "/dashboard/students",
		signAccess(t, codec, model.RoleTeacher, model.TeacherRoleHomeroom))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, model.RoleTeacher, claims.Role)
	assert.Equal(t, model.TeacherRoleHomeroom, claims.TeacherRole)
}

func TestGateSubroleWidensAPIAccess(t *testing.T) {
	gate, codec := newTestGate()

	rec, _ := gateRequest(gate, http.MethodPost, "/api/v1/students",
		signAccess(t, codec, model.RoleTeacher, model.TeacherRoleHomeroom))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateBypassesLoginPageAndAuthAPI(t *testing.T) {
	gate, _ := newTestGate()

	for _, path := range []string{"/login", "/api/v1/auth/login", "/api/v1/auth/refresh"} {
		rec, _ := gateRequest(gate, http.MethodPost, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestGateDoesNotBypassLoginPrefix(t *testing.T) {
	gate, _ := newTestGate()

	// Only the exact login path is exempt, not everything under it.
	rec, _ := gateRequest(gate, http.MethodGet, "/login/reset", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestClaimsFromContextWithoutGate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	claims, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)
	assert.Nil(t, claims)
}
