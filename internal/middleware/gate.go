package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"school-admin/internal/model"
	"school-admin/internal/rbac"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type accessVerifier interface {
	VerifyAccess(tokenString string) (*model.AuthClaims, error)
}

type policyEvaluator interface {
	Evaluate(path string, method string, perms rbac.PermissionSet) bool
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// Gate is the single per-request authorization chokepoint. Every request
// on a protected prefix passes here exactly once, before any handler:
// no cookie or a bad token sends the client to the login page, a policy
// denial to the forbidden page, and nothing in between. Why a token was
// rejected is deliberately not told apart in the response.
type Gate struct {
	verifier       accessVerifier
	policy         policyEvaluator
	loginPath      string
	forbiddenPath  string
	apiPrefix      string
	bypassPrefixes []string
}

func NewGate(verifier accessVerifier, policy policyEvaluator, loginPath string, forbiddenPath string) *Gate {
	return &Gate{
		verifier:      verifier,
		policy:        policy,
		loginPath:     loginPath,
		forbiddenPath: forbiddenPath,
		apiPrefix:     "/api",
		// The login page and the auth API never pass through the gate;
		// they are how an unauthenticated client becomes authenticated.
		bypassPrefixes: []string{"/api/v1/auth"},
	}
}

func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if g.bypassed(path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AccessTokenCookie)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			g.denyUnauthenticated(w, r)
			return
		}

		claims, err := g.verifier.VerifyAccess(cookie.Value)
		if err != nil {
			g.denyUnauthenticated(w, r)
			return
		}

		perms := rbac.PermissionsFor(claims.Role, claims.TeacherRole)
		if !g.policy.Evaluate(path, r.Method, perms) {
			g.denyForbidden(w, r)
			return
		}

		if holder, ok := r.Context().Value(claimsHolderContextKey).(*claimsHolder); ok {
			holder.claims = claims
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) bypassed(path string) bool {
	if path == g.loginPath {
		return true
	}
	for _, prefix := range g.bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gate) denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if g.isAPI(r.URL.Path) {
		writeGateError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	http.Redirect(w, r, g.loginPath, http.StatusFound)
}

func (g *Gate) denyForbidden(w http.ResponseWriter, r *http.Request) {
	if g.isAPI(r.URL.Path) {
		writeGateError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		return
	}
	http.Redirect(w, r, g.forbiddenPath, http.StatusFound)
}

func (g *Gate) isAPI(path string) bool {
	return strings.HasPrefix(path, g.apiPrefix)
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok
}

func writeGateError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
