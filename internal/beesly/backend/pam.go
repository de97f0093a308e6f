package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msteinert/pam/v2"
)

// DefaultAuthTimeout bounds a single PAM conversation. Misconfigured PAM
// stacks can block indefinitely on a module; the service must not hang a
// request with them.
const DefaultAuthTimeout = 5 * time.Second

// ErrAuthTimeout is returned when the PAM conversation exceeds the
// configured timeout.
var ErrAuthTimeout = errors.New("pam: authentication timed out")

// PAMBackend authenticates against the host's PAM stack using a named
// service definition under /etc/pam.d.
type PAMBackend struct {
	// Service is the PAM service name, e.g. "sshd" or "login".
	Service string

	// Timeout bounds one authentication attempt. Zero means
	// DefaultAuthTimeout.
	Timeout time.Duration
}

// NewPAMBackend returns a backend for the given PAM service.
func NewPAMBackend(service string) *PAMBackend {
	return &PAMBackend{Service: service, Timeout: DefaultAuthTimeout}
}

// Authenticate runs a PAM conversation for the username, answering every
// hidden prompt with the supplied password. Rejected credentials return
// (false, nil); a transaction that cannot start, or one that exceeds the
// timeout, returns an error.
func (b *PAMBackend) Authenticate(ctx context.Context, username, password string) (bool, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)

	// The PAM C library has no cancellation hook, so the conversation
	// runs on its own goroutine. On timeout the goroutine is abandoned;
	// the buffered channel lets it finish without leaking.
	go func() {
		ok, err := b.authenticate(username, password)
		done <- result{ok: ok, err: err}
	}()

	select {
	case r := <-done:
		return r.ok, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, ErrAuthTimeout
		}
		return false, ctx.Err()
	}
}

func (b *PAMBackend) authenticate(username, password string) (bool, error) {
	tx, err := pam.StartFunc(b.Service, username, func(style pam.Style, _ string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		case pam.PromptEchoOn:
			return username, nil
		case pam.ErrorMsg, pam.TextInfo:
			return "", nil
		default:
			return "", fmt.Errorf("pam: unsupported conversation style %d", style)
		}
	})
	if err != nil {
		return false, fmt.Errorf("pam: start transaction for service %q: %w", b.Service, err)
	}
	defer func() { _ = tx.End() }()

	// A PAM error here is the rejection itself, not an infrastructure
	// failure.
	if err := tx.Authenticate(0); err != nil {
		return false, nil
	}
	return true, nil
}
