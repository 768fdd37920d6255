package model

import "time"

// Session is one issued refresh token. Only the hash of the token is
// stored; the raw value is returned to the client exactly once at login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordResetToken is single-use: the used flag flips on consumption
// and the row is kept for auditing rather than deleted.
type PasswordResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginAudit records every login attempt, successful or not. UserID is
// empty when the attempted identifier matched no account.
type LoginAudit struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	Identifier string    `json:"identifier"`
	Success    bool      `json:"success"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoginAuditQuery filters the audit listing.
type LoginAuditQuery struct {
	UserID     string
	Identifier string
	Success    *bool
	From       string
	To         string
	Page       int
	Limit      int
}
