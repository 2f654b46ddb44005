package driving

import (
	"context"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

// SessionController drives one realtime session. A controller is
// single-use: after Stop or an error, construct a new one.
type SessionController interface {
	// Start opens the channel and begins duplex streaming. It returns
	// once the session is Active or has failed.
	Start(ctx context.Context) error

	// Stop closes the session gracefully. Calling Stop on a session
	// that is already Closed or Errored is a no-op.
	Stop(ctx context.Context) error

	// SubmitText sends a typed user message through the same
	// retrieve-then-respond turn path as a spoken utterance.
	SubmitText(ctx context.Context, text string) error

	// Events returns the session notification stream. The channel is
	// closed when the session terminates.
	Events() <-chan domain.SessionEvent

	// State returns the current session state.
	State() domain.SessionState
}
