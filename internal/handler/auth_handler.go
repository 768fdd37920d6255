package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"school-admin/internal/middleware"
	"school-admin/internal/model"
	"school-admin/internal/service"
	"school-admin/pkg/apierror"
)

// CookieSettings controls how auth cookies are issued. AccessMaxAge is
// deliberately longer than the access token's own expiry claim: the
// cookie has to survive long enough for the refresh endpoint to re-issue
// silently.
type CookieSettings struct {
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Secure        bool
}

type AuthHandler struct {
	service *service.AuthService
	cookies CookieSettings
}

func NewAuthHandler(service *service.AuthService, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	info := service.RequestInfo{
		ClientIP:  middleware.ExtractClientIP(r),
		UserAgent: r.UserAgent(),
	}

	tokens, err := h.service.Login(r.Context(), payload.Username, payload.Password, info)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, tokens.AccessToken, h.cookies.AccessMaxAge)
	h.setCookie(w, middleware.RefreshTokenCookie, tokens.RefreshToken, h.cookies.RefreshMaxAge)

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	refreshToken := cookieValue(r, middleware.RefreshTokenCookie)
	if refreshToken == "" {
		writeError(w, apierror.New("UNAUTHORIZED", "refresh token is missing", "", http.StatusUnauthorized))
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCookie(w, middleware.AccessTokenCookie, accessToken, h.cookies.AccessMaxAge)

	writeSuccess(w, http.StatusOK, map[string]any{"access_token": accessToken}, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	// Body is optional; an empty logout still clears this device.
	var payload model.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&payload)

	userID := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = claims.UserID
	}

	refreshToken := cookieValue(r, middleware.RefreshTokenCookie)

	if err := h.service.Logout(r.Context(), refreshToken, userID, payload.AllDevices); err != nil {
		writeError(w, err)
		return
	}

	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, middleware.RefreshTokenCookie)

	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true}, nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if strings.TrimSpace(payload.NewPassword) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "new_password is required", "new_password", http.StatusBadRequest))
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, payload.OldPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"changed": true}, nil)
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RequestPasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	token, err := h.service.RequestPasswordReset(r.Context(), payload.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	// The raw token is handed to the delivery channel; mail delivery is
	// not this service's job.
	writeSuccess(w, http.StatusCreated, map[string]any{"reset_token": token}, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if strings.TrimSpace(payload.Token) == "" || strings.TrimSpace(payload.NewPassword) == "" {
		writeError(w, apierror.New("BAD_REQUEST", "token and new_password are required", "", http.StatusBadRequest))
		return
	}

	if err := h.service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"reset": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name string, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
