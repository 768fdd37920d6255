package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"school-admin/internal/crypto"
	"school-admin/internal/event"
	"school-admin/internal/model"
	"school-admin/pkg/apierror"
)

type credentialStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	ResetFailedAttempts(ctx context.Context, userID string) error
	LockAccount(ctx context.Context, userID string, until time.Time) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

type sessionStore interface {
	Save(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) (model.Session, error)
	FindValidByUser(ctx context.Context, userID string) ([]model.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type resetTokenStore interface {
	Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) (model.PasswordResetToken, error)
	FindValidByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string) error
}

type loginAuditStore interface {
	CreateLoginAudit(ctx context.Context, entry model.LoginAudit) error
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain string, hash string) bool
	HashRefreshToken(token string) (string, error)
	CompareRefreshToken(token string, hash string) bool
}

type tokenCodec interface {
	SignAccess(user model.User) (string, error)
	SignRefresh(user model.User) (string, error)
	VerifyRefresh(tokenString string) (*model.AuthClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// RequestInfo carries per-request client metadata into the audit trail.
type RequestInfo struct {
	ClientIP  string
	UserAgent string
}

// AuthService owns the login/logout/refresh/reset state machine. It is
// stateless between requests; all durable state lives behind the injected
// stores.
type AuthService struct {
	users       credentialStore
	sessions    sessionStore
	resets      resetTokenStore
	audits      loginAuditStore
	hasher      passwordHasher
	codec       tokenCodec
	lock        LockPolicy
	resetTTL    time.Duration
	maxSessions int
	bus         event.Bus
}

func NewAuthService(
	users credentialStore,
	sessions sessionStore,
	resets resetTokenStore,
	audits loginAuditStore,
	hasher passwordHasher,
	codec tokenCodec,
	lock LockPolicy,
	resetTTL time.Duration,
	maxSessions int,
	bus event.Bus,
) *AuthService {
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	if maxSessions <= 0 {
		maxSessions = 10
	}

	return &AuthService{
		users:       users,
		sessions:    sessions,
		resets:      resets,
		audits:      audits,
		hasher:      hasher,
		codec:       codec,
		lock:        lock,
		resetTTL:    resetTTL,
		maxSessions: maxSessions,
		bus:         bus,
	}
}

var errInvalidCredentials = apierror.New("INVALID_CREDENTIALS", "invalid credentials", "", http.StatusUnauthorized)

// Login validates credentials and issues an access/refresh token pair.
// The lock check runs strictly before the password comparison so a locked
// account reveals nothing about password correctness, and unknown
// username and wrong password share one error.
func (s *AuthService) Login(ctx context.Context, username string, password string, info RequestInfo) (model.TokenPair, error) {
	identifier := strings.TrimSpace(username)

	user, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		if err == model.ErrUserNotFound {
			s.recordLogin(ctx, "", identifier, false, info)
			return model.TokenPair{}, errInvalidCredentials
		}
		return model.TokenPair{}, err
	}

	if !user.IsActive {
		s.recordLogin(ctx, user.ID, identifier, false, info)
		return model.TokenPair{}, errInvalidCredentials
	}

	now := time.Now().UTC()
	if lockErr := s.lock.CanAttemptLogin(user, now); lockErr != nil {
		s.recordLogin(ctx, user.ID, identifier, false, info)
		return model.TokenPair{}, lockErr
	}

	if !s.hasher.Compare(password, user.PasswordHash) {
		if err := s.handleFailedAttempt(ctx, user, now); err != nil {
			return model.TokenPair{}, err
		}
		s.recordLogin(ctx, user.ID, identifier, false, info)
		return model.TokenPair{}, errInvalidCredentials
	}

	if err := s.users.ResetFailedAttempts(ctx, user.ID); err != nil {
		return model.TokenPair{}, err
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}

	s.recordLogin(ctx, user.ID, identifier, true, info)
	s.publish(event.TypeLoginSucceeded, user.ID, map[string]string{"username": user.Username})

	return pair, nil
}

func (s *AuthService) handleFailedAttempt(ctx context.Context, user model.User, now time.Time) error {
	count, err := s.users.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return err
	}

	s.publish(event.TypeLoginFailed, user.ID, map[string]any{"username": user.Username, "failed_attempts": count})

	if until, shouldLock := s.lock.ComputeLockExpiry(count, now); shouldLock {
		if err := s.users.LockAccount(ctx, user.ID, until); err != nil {
			return err
		}
		s.publish(event.TypeAccountLocked, user.ID, map[string]any{"username": user.Username, "locked_until": until})
	}

	return nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	accessToken, err := s.codec.SignAccess(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.codec.SignRefresh(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	// Only the hash of the refresh token is persisted; the raw value
	// leaves the process exactly once, in this return.
	tokenHash, err := s.hasher.HashRefreshToken(refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	// Cap concurrent sessions per user so the linear hash scan on
	// refresh stays bounded: the oldest session gives way.
	existing, err := s.sessions.FindValidByUser(ctx, user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}
	for len(existing) >= s.maxSessions {
		if err := s.sessions.Revoke(ctx, existing[0].ID); err != nil {
			return model.TokenPair{}, err
		}
		existing = existing[1:]
	}

	expiresAt := time.Now().UTC().Add(s.codec.RefreshTTL())
	if _, err := s.sessions.Save(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		User:         authUser(user),
	}, nil
}

// Logout revokes the session behind refreshToken, or every session of
// userID when allDevices is set or no token was presented. Logging out
// with a stale or unknown token is not an error; the operation is
// idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, userID string, allDevices bool) error {
	if allDevices {
		if userID == "" {
			return apierror.New("BAD_REQUEST", "no session to log out", "", http.StatusBadRequest)
		}
		if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
		s.publish(event.TypeSessionRevoked, userID, map[string]string{"scope": "all"})
		return nil
	}

	if strings.TrimSpace(refreshToken) == "" {
		if userID == "" {
			return apierror.New("BAD_REQUEST", "no session to log out", "", http.StatusBadRequest)
		}
		// No token to match a single session against, but the caller is
		// authenticated: revoke everything the user holds rather than
		// reporting success while sessions stay live.
		if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
			return err
		}
		s.publish(event.TypeSessionRevoked, userID, map[string]string{"scope": "all"})
		return nil
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		// Stale or garbage token: nothing to revoke.
		return nil
	}

	session, err := s.findMatchingSession(ctx, claims.UserID, refreshToken)
	if err != nil || session == nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		return err
	}
	s.publish(event.TypeSessionRevoked, claims.UserID, map[string]string{"session_id": session.ID})
	return nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; the same session keeps serving
// until it expires or is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	// Signature first: an unverified payload's subject must never drive
	// a session lookup.
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return "", errInvalidRefresh()
	}

	session, err := s.findMatchingSession(ctx, claims.UserID, refreshToken)
	if err != nil {
		return "", err
	}
	if session == nil {
		// No valid session holds this token: revoked, expired, or a
		// replay of a rotated-out token. All indistinguishable outside.
		return "", errInvalidRefresh()
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if err == model.ErrUserNotFound {
			return "", errInvalidRefresh()
		}
		return "", err
	}
	if !user.IsActive {
		return "", errInvalidRefresh()
	}

	accessToken, err := s.codec.SignAccess(user)
	if err != nil {
		return "", err
	}

	s.publish(event.TypeTokenRefreshed, user.ID, nil)
	return accessToken, nil
}

// findMatchingSession scans the user's valid sessions comparing the raw
// token against each stored hash. Linear on purpose: per-session salts
// rule out a direct hash lookup, and the session cap keeps the scan
// small.
func (s *AuthService) findMatchingSession(ctx context.Context, userID string, refreshToken string) (*model.Session, error) {
	sessions, err := s.sessions.FindValidByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		if s.hasher.CompareRefreshToken(refreshToken, sessions[i].TokenHash) {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, oldPassword string, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == model.ErrUserNotFound {
			return apierror.New("NOT_FOUND", "user not found", userID, http.StatusNotFound)
		}
		return err
	}

	if !s.hasher.Compare(oldPassword, user.PasswordHash) {
		return apierror.New("INVALID_OLD_PASSWORD", "old password does not match", "", http.StatusBadRequest)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.publish(event.TypePasswordChanged, user.ID, nil)
	return nil
}

// RequestPasswordReset issues a single-use reset token. The raw token is
// returned for out-of-band delivery and never persisted.
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if err == model.ErrUserNotFound {
			return "", apierror.New("NOT_FOUND", "user not found", "", http.StatusNotFound)
		}
		return "", err
	}

	raw, err := crypto.NewResetToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(s.resetTTL)
	if _, err := s.resets.Create(ctx, user.ID, crypto.HashResetToken(raw), expiresAt); err != nil {
		return "", err
	}

	s.publish(event.TypeResetRequested, user.ID, map[string]string{"username": user.Username})
	return raw, nil
}

// ResetPassword consumes a reset token. Used, expired, and unknown
// tokens all fail the same way.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken string, newPassword string) error {
	reset, err := s.resets.FindValidByHash(ctx, crypto.HashResetToken(strings.TrimSpace(rawToken)))
	if err != nil {
		if err == model.ErrInvalidResetToken {
			return apierror.New("INVALID_RESET_TOKEN", "reset token is invalid or expired", "", http.StatusBadRequest)
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return err
	}

	if err := s.resets.MarkUsed(ctx, reset.ID); err != nil {
		return err
	}

	// A reset means the old credential may be compromised; existing
	// sessions do not survive it.
	if err := s.sessions.RevokeAllForUser(ctx, reset.UserID); err != nil {
		return err
	}

	s.publish(event.TypePasswordReset, reset.UserID, nil)
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == model.ErrUserNotFound {
			return model.AuthUser{}, apierror.New("NOT_FOUND", "user not found", userID, http.StatusNotFound)
		}
		return model.AuthUser{}, err
	}

	return authUser(user), nil
}

// recordLogin is best-effort: the audit trail must never decide a login.
func (s *AuthService) recordLogin(ctx context.Context, userID string, identifier string, success bool, info RequestInfo) {
	entry := model.LoginAudit{
		UserID:     userID,
		Identifier: identifier,
		Success:    success,
		ClientIP:   info.ClientIP,
		UserAgent:  info.UserAgent,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.audits.CreateLoginAudit(ctx, entry); err != nil {
		slog.Warn("login audit write failed", "error", err, "identifier", identifier)
	}
}

func (s *AuthService) publish(typ event.Type, actorID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(typ, actorID, payload))
}

func errInvalidRefresh() error {
	return apierror.New("UNAUTHORIZED", "refresh token is invalid", "", http.StatusUnauthorized)
}

func authUser(u model.User) model.AuthUser {
	return model.AuthUser{
		ID:                 u.ID,
		Username:           u.Username,
		Role:               u.Role,
		TeacherRole:        u.TeacherRole,
		MustChangePassword: u.MustChangePassword,
	}
}
