package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"school-admin/internal/crypto"
	"school-admin/internal/model"
	"school-admin/internal/token"
	"school-admin/pkg/apierror"
)

type serviceFixture struct {
	svc    *AuthService
	users  *mockCredentialStore
	sess   *mockSessionStore
	resets *mockResetTokenStore
	audits *mockAuditStore
	codec  *token.Codec
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		users:  new(mockCredentialStore),
		sess:   new(mockSessionStore),
		resets: new(mockResetTokenStore),
		audits: new(mockAuditStore),
		codec:  token.NewCodec("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour),
	}
	f.svc = NewAuthService(f.users, f.sess, f.resets, f.audits, fakeHasher{}, f.codec,
		DefaultLockPolicy(), 15*time.Minute, 10, nil)
	return f
}

func activeUser() model.User {
	return model.User{
		ID:           "u-1",
		Username:     "budi",
		PasswordHash: "hashed:correct-horse",
		Role:         model.RoleTeacher,
		TeacherRole:  model.TeacherRoleHomeroom,
		IsActive:     true,
	}
}

func assertAPIError(t *testing.T, err error, code string, status int) {
	t.Helper()

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected *apierror.APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code)
	assert.Equal(t, status, apiErr.HTTPStatus)
}

func TestAuthServiceLoginUnknownUserIsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsername", mock.Anything, "ghost").Return(model.User{}, model.ErrUserNotFound)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), "ghost", "whatever", RequestInfo{})

	assertAPIError(t, err, "INVALID_CREDENTIALS", 401)
	f.audits.AssertCalled(t, "CreateLoginAudit", mock.Anything, mock.MatchedBy(func(e model.LoginAudit) bool {
		return !e.Success && e.Identifier == "ghost"
	}))
}

func TestAuthServiceLoginInactiveUserIsInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	user.IsActive = false
	f.users.On("FindByUsername", mock.Anything, "budi").Return(user, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), "budi", "correct-horse", RequestInfo{})

	assertAPIError(t, err, "INVALID_CREDENTIALS", 401)
	f.users.AssertNotCalled(t, "IncrementFailedAttempts", mock.Anything, mock.Anything)
}

func TestAuthServiceLoginWrongPasswordIncrementsAttempts(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsername", mock.Anything, "budi").Return(activeUser(), nil)
	f.users.On("IncrementFailedAttempts", mock.Anything, "u-1").Return(1, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), "budi", "wrong", RequestInfo{})

	assertAPIError(t, err, "INVALID_CREDENTIALS", 401)
	f.users.AssertNotCalled(t, "LockAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthServiceLoginFifthFailureLocksAccount(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsername", mock.Anything, "budi").Return(activeUser(), nil)
	f.users.On("IncrementFailedAttempts", mock.Anything, "u-1").Return(5, nil)
	f.users.On("LockAccount", mock.Anything, "u-1", mock.Anything).Return(nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	before := time.Now().UTC()
	_, err := f.svc.Login(context.Background(), "budi", "wrong", RequestInfo{})

	assertAPIError(t, err, "INVALID_CREDENTIALS", 401)
	f.users.AssertCalled(t, "LockAccount", mock.Anything, "u-1", mock.MatchedBy(func(until time.Time) bool {
		return until.After(before.Add(14*time.Minute)) && until.Before(before.Add(16*time.Minute))
	}))
}

func TestAuthServiceLoginLockedAccountRejectsCorrectPassword(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	until := time.Now().UTC().Add(10 * time.Minute)
	user.LockedUntil = &until
	user.FailedLoginAttempts = 5
	f.users.On("FindByUsername", mock.Anything, "budi").Return(user, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), "budi", "correct-horse", RequestInfo{})

	assertAPIError(t, err, "ACCOUNT_LOCKED", 423)
	f.users.AssertNotCalled(t, "IncrementFailedAttempts", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "ResetFailedAttempts", mock.Anything, mock.Anything)
}

func TestAuthServiceLoginExpiredLockAllowsLogin(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	until := time.Now().UTC().Add(-1 * time.Minute)
	user.LockedUntil = &until
	user.FailedLoginAttempts = 5
	f.users.On("FindByUsername", mock.Anything, "budi").Return(user, nil)
	f.users.On("ResetFailedAttempts", mock.Anything, "u-1").Return(nil)
	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{}, nil)
	f.sess.On("Save", mock.Anything, "u-1", mock.Anything, mock.Anything).Return(model.Session{ID: "s-1"}, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.Login(context.Background(), "budi", "correct-horse", RequestInfo{})

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestAuthServiceLoginSuccessResetsCounterAndStoresHash(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	user.FailedLoginAttempts = 3
	f.users.On("FindByUsername", mock.Anything, "budi").Return(user, nil)
	f.users.On("ResetFailedAttempts", mock.Anything, "u-1").Return(nil)
	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{}, nil)

	var storedHash string
	f.sess.On("Save", mock.Anything, "u-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(model.Session{ID: "s-1"}, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	pair, err := f.svc.Login(context.Background(), "budi", "correct-horse", RequestInfo{ClientIP: "10.0.0.9"})

	require.NoError(t, err)
	f.users.AssertCalled(t, "ResetFailedAttempts", mock.Anything, "u-1")

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.Equal(t, "budi", pair.User.Username)

	// The store never sees the raw refresh token.
	assert.NotEqual(t, pair.RefreshToken, storedHash)
	assert.True(t, fakeHasher{}.CompareRefreshToken(pair.RefreshToken, storedHash))

	claims, err := f.codec.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, model.RoleTeacher, claims.Role)
	assert.Equal(t, model.TeacherRoleHomeroom, claims.TeacherRole)

	f.audits.AssertCalled(t, "CreateLoginAudit", mock.Anything, mock.MatchedBy(func(e model.LoginAudit) bool {
		return e.Success && e.UserID == "u-1" && e.ClientIP == "10.0.0.9"
	}))
}

func TestAuthServiceLoginSessionCapRevokesOldest(t *testing.T) {
	f := newFixture(t)
	f.svc = NewAuthService(f.users, f.sess, f.resets, f.audits, fakeHasher{}, f.codec,
		DefaultLockPolicy(), 15*time.Minute, 2, nil)

	f.users.On("FindByUsername", mock.Anything, "budi").Return(activeUser(), nil)
	f.users.On("ResetFailedAttempts", mock.Anything, "u-1").Return(nil)
	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{
		{ID: "s-old", UserID: "u-1"},
		{ID: "s-new", UserID: "u-1"},
	}, nil)
	f.sess.On("Revoke", mock.Anything, "s-old").Return(nil)
	f.sess.On("Save", mock.Anything, "u-1", mock.Anything, mock.Anything).Return(model.Session{ID: "s-2"}, nil)
	f.audits.On("CreateLoginAudit", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Login(context.Background(), "budi", "correct-horse", RequestInfo{})

	require.NoError(t, err)
	f.sess.AssertCalled(t, "Revoke", mock.Anything, "s-old")
	f.sess.AssertNotCalled(t, "Revoke", mock.Anything, "s-new")
}

func (f *serviceFixture) signedRefreshToken(t *testing.T, user model.User) string {
	t.Helper()

	refreshToken, err := f.codec.SignRefresh(user)
	require.NoError(t, err)
	return refreshToken
}

func TestAuthServiceRefreshIssuesNewAccessToken(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	refreshToken := f.signedRefreshToken(t, user)

	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{
		{ID: "s-1", UserID: "u-1", TokenHash: "rt:" + refreshToken},
	}, nil)
	f.users.On("FindByID", mock.Anything, "u-1").Return(user, nil)

	accessToken, err := f.svc.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)

	claims, err := f.codec.VerifyAccess(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)

	// No rotation: the same refresh token keeps working.
	again, err := f.svc.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, again)
}

func TestAuthServiceRefreshRejectsGarbageToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt")

	assertAPIError(t, err, "UNAUTHORIZED", 401)
	f.sess.AssertNotCalled(t, "FindValidByUser", mock.Anything, mock.Anything)
}

func TestAuthServiceRefreshRejectsAccessTokenInRefreshSlot(t *testing.T) {
	f := newFixture(t)
	accessToken, err := f.codec.SignAccess(activeUser())
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), accessToken)

	assertAPIError(t, err, "UNAUTHORIZED", 401)
	f.sess.AssertNotCalled(t, "FindValidByUser", mock.Anything, mock.Anything)
}

func TestAuthServiceRefreshRejectsRevokedSession(t *testing.T) {
	f := newFixture(t)
	refreshToken := f.signedRefreshToken(t, activeUser())

	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{}, nil)

	_, err := f.svc.Refresh(context.Background(), refreshToken)

	assertAPIError(t, err, "UNAUTHORIZED", 401)
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestAuthServiceRefreshRejectsDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	refreshToken := f.signedRefreshToken(t, user)
	user.IsActive = false

	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{
		{ID: "s-1", UserID: "u-1", TokenHash: "rt:" + refreshToken},
	}, nil)
	f.users.On("FindByID", mock.Anything, "u-1").Return(user, nil)

	_, err := f.svc.Refresh(context.Background(), refreshToken)

	assertAPIError(t, err, "UNAUTHORIZED", 401)
}

func TestAuthServiceLogoutRevokesMatchingSession(t *testing.T) {
	f := newFixture(t)
	refreshToken := f.signedRefreshToken(t, activeUser())

	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{
		{ID: "s-other", UserID: "u-1", TokenHash: "rt:something-else"},
		{ID: "s-mine", UserID: "u-1", TokenHash: "rt:" + refreshToken},
	}, nil)
	f.sess.On("Revoke", mock.Anything, "s-mine").Return(nil)

	err := f.svc.Logout(context.Background(), refreshToken, "", false)

	require.NoError(t, err)
	f.sess.AssertCalled(t, "Revoke", mock.Anything, "s-mine")
	f.sess.AssertNotCalled(t, "Revoke", mock.Anything, "s-other")
}

func TestAuthServiceLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	refreshToken := f.signedRefreshToken(t, activeUser())

	// Already revoked: no valid session carries the hash.
	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{}, nil)

	assert.NoError(t, f.svc.Logout(context.Background(), refreshToken, "", false))
	f.sess.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestAuthServiceLogoutSwallowsGarbageToken(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.svc.Logout(context.Background(), "not-a-jwt", "", false))
	f.sess.AssertNotCalled(t, "FindValidByUser", mock.Anything, mock.Anything)
}

func TestAuthServiceLogoutAllDevices(t *testing.T) {
	f := newFixture(t)
	f.sess.On("RevokeAllForUser", mock.Anything, "u-1").Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), "", "u-1", true))
	f.sess.AssertCalled(t, "RevokeAllForUser", mock.Anything, "u-1")
}

func TestAuthServiceLogoutWithoutTokenRevokesAllUserSessions(t *testing.T) {
	f := newFixture(t)
	f.sess.On("RevokeAllForUser", mock.Anything, "u-1").Return(nil)

	// Refresh cookie already gone but the caller is authenticated: the
	// logout must not report success while sessions stay live.
	require.NoError(t, f.svc.Logout(context.Background(), "", "u-1", false))
	f.sess.AssertCalled(t, "RevokeAllForUser", mock.Anything, "u-1")
}

func TestAuthServiceLogoutWithNothingToRevokeIsBadRequest(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Logout(context.Background(), "", "", false)

	assertAPIError(t, err, "BAD_REQUEST", 400)
}

func TestAuthServiceLogoutThenRefreshFails(t *testing.T) {
	f := newFixture(t)
	user := activeUser()
	refreshToken := f.signedRefreshToken(t, user)

	live := []model.Session{{ID: "s-1", UserID: "u-1", TokenHash: "rt:" + refreshToken}}
	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return(live, nil).Once()
	f.sess.On("Revoke", mock.Anything, "s-1").Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), refreshToken, "", false))

	f.sess.On("FindValidByUser", mock.Anything, "u-1").Return([]model.Session{}, nil)

	_, err := f.svc.Refresh(context.Background(), refreshToken)
	assertAPIError(t, err, "UNAUTHORIZED", 401)
}

func TestAuthServiceChangePassword(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown user", func(t *testing.T) {
		f.users.On("FindByID", mock.Anything, "missing").Return(model.User{}, model.ErrUserNotFound)

		err := f.svc.ChangePassword(context.Background(), "missing", "old", "new")
		assertAPIError(t, err, "NOT_FOUND", 404)
	})

	t.Run("wrong old password", func(t *testing.T) {
		f.users.On("FindByID", mock.Anything, "u-1").Return(activeUser(), nil)

		err := f.svc.ChangePassword(context.Background(), "u-1", "wrong", "new")
		assertAPIError(t, err, "INVALID_OLD_PASSWORD", 400)
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		f.users.On("UpdatePassword", mock.Anything, "u-1", "hashed:new-password").Return(nil)

		err := f.svc.ChangePassword(context.Background(), "u-1", "correct-horse", "new-password")
		require.NoError(t, err)
		f.users.AssertCalled(t, "UpdatePassword", mock.Anything, "u-1", "hashed:new-password")
	})
}

func TestAuthServiceRequestPasswordResetStoresOnlyHash(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsername", mock.Anything, "budi").Return(activeUser(), nil)

	var storedHash string
	f.resets.On("Create", mock.Anything, "u-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(model.PasswordResetToken{ID: "prt-1"}, nil)

	raw, err := f.svc.RequestPasswordReset(context.Background(), "budi")

	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, storedHash)
	assert.Equal(t, crypto.HashResetToken(raw), storedHash)
}

func TestAuthServiceRequestPasswordResetUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsername", mock.Anything, "ghost").Return(model.User{}, model.ErrUserNotFound)

	_, err := f.svc.RequestPasswordReset(context.Background(), "ghost")

	assertAPIError(t, err, "NOT_FOUND", 404)
	f.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthServiceResetPasswordConsumesTokenAndRevokesSessions(t *testing.T) {
	f := newFixture(t)
	raw := "reset-token-raw"
	hash := crypto.HashResetToken(raw)

	f.resets.On("FindValidByHash", mock.Anything, hash).Return(model.PasswordResetToken{
		ID:     "prt-1",
		UserID: "u-1",
	}, nil)
	f.users.On("UpdatePassword", mock.Anything, "u-1", "hashed:fresh-password").Return(nil)
	f.resets.On("MarkUsed", mock.Anything, "prt-1").Return(nil)
	f.sess.On("RevokeAllForUser", mock.Anything, "u-1").Return(nil)

	err := f.svc.ResetPassword(context.Background(), raw, "fresh-password")

	require.NoError(t, err)
	f.resets.AssertCalled(t, "MarkUsed", mock.Anything, "prt-1")
	f.sess.AssertCalled(t, "RevokeAllForUser", mock.Anything, "u-1")
}

func TestAuthServiceResetPasswordRejectsUsedToken(t *testing.T) {
	f := newFixture(t)
	raw := "already-used"

	f.resets.On("FindValidByHash", mock.Anything, crypto.HashResetToken(raw)).
		Return(model.PasswordResetToken{}, model.ErrInvalidResetToken)

	err := f.svc.ResetPassword(context.Background(), raw, "whatever")

	assertAPIError(t, err, "INVALID_RESET_TOKEN", 400)
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}
