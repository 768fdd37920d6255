package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"school-admin/internal/model"
)

type mockCredentialStore struct {
	mock.Mock
}

func (m *mockCredentialStore) FindByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockCredentialStore) FindByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockCredentialStore) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockCredentialStore) ResetFailedAttempts(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockCredentialStore) LockAccount(ctx context.Context, userID string, until time.Time) error {
	args := m.Called(ctx, userID, until)
	return args.Error(0)
}

func (m *mockCredentialStore) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Save(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) (model.Session, error) {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *mockSessionStore) FindValidByUser(ctx context.Context, userID string) ([]model.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockSessionStore) Revoke(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockResetTokenStore struct {
	mock.Mock
}

func (m *mockResetTokenStore) Create(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) (model.PasswordResetToken, error) {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Get(0).(model.PasswordResetToken), args.Error(1)
}

func (m *mockResetTokenStore) FindValidByHash(ctx context.Context, tokenHash string) (model.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(model.PasswordResetToken), args.Error(1)
}

func (m *mockResetTokenStore) MarkUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) CreateLoginAudit(ctx context.Context, entry model.LoginAudit) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// fakeHasher trades bcrypt for trivially checkable prefixes so service
// tests stay fast and deterministic.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (fakeHasher) Compare(plain string, hash string) bool {
	return hash == "hashed:"+plain
}

func (fakeHasher) HashRefreshToken(tok string) (string, error) {
	return "rt:" + tok, nil
}

func (fakeHasher) CompareRefreshToken(tok string, hash string) bool {
	return hash == "rt:"+tok
}
