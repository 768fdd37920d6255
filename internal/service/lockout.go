package service

import (
	"net/http"
	"time"

	"school-admin/internal/model"
	"school-admin/pkg/apierror"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LockPolicy is the pure account-lockout rule: a fixed attempt threshold
// and a fixed lock duration. Exponential backoff would be a behavior
// change, not a tuning knob, so it is not a field here.
type LockPolicy struct {
	Threshold    int
	LockDuration time.Duration
}

func DefaultLockPolicy() LockPolicy {
	return LockPolicy{Threshold: DefaultLockoutThreshold, LockDuration: DefaultLockoutDuration}
}

// CanAttemptLogin rejects a currently-locked account. Stored locks are
// never eagerly expired; the rule re-reads lockUntil on every attempt and
// a past timestamp simply stops mattering.
func (p LockPolicy) CanAttemptLogin(user model.User, now time.Time) error {
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return lockedError(*user.LockedUntil)
	}
	return nil
}

// ComputeLockExpiry returns the lock expiry once failedAttempts reaches
// the threshold, and false below it.
func (p LockPolicy) ComputeLockExpiry(failedAttempts int, now time.Time) (time.Time, bool) {
	if failedAttempts < p.Threshold {
		return time.Time{}, false
	}
	return now.Add(p.LockDuration), true
}

func lockedError(until time.Time) error {
	return apierror.New("ACCOUNT_LOCKED", "account locked until "+until.UTC().Format(time.RFC3339),
		until.UTC().Format(time.RFC3339), http.StatusLocked)
}
