package middleware

import (
	"net/http"
	"time"
)

// Timeout caps API handler time. The payload mirrors the standard error
// envelope so clients parse timeouts like any other failure.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	message := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
