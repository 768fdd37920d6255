package event

type Type string

const (
	TypeLoginSucceeded  Type = "login.succeeded"
	TypeLoginFailed     Type = "login.failed"
	TypeAccountLocked   Type = "account.locked"
	TypeSessionRevoked  Type = "session.revoked"
	TypeTokenRefreshed  Type = "token.refreshed"
	TypePasswordChanged Type = "password.changed"
	TypeResetRequested  Type = "reset.requested"
	TypePasswordReset   Type = "password.reset"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"` // Who triggered the event
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
