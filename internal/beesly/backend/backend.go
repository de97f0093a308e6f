// Package backend verifies credentials against the host and resolves
// group membership for authenticated subjects.
package backend

import "context"

// CredentialBackend checks a username/password pair against an identity
// source. A false verdict with a nil error means the credentials were
// rejected; a non-nil error means the check itself could not run.
type CredentialBackend interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

// GroupResolver returns the groups a subject belongs to, excluding the
// subject's own primary group of the same name.
type GroupResolver interface {
	Groups(ctx context.Context, username string) ([]string, error)
}
