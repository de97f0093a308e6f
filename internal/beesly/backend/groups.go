package backend

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// IDGroupResolver resolves group membership by shelling out to id(1).
// The os/user package only reads local files; id consults NSS, so LDAP
// and SSSD backed accounts resolve correctly too.
type IDGroupResolver struct {
	// Path is the absolute path of the id binary, located at startup
	// with exec.LookPath.
	Path string
}

// NewIDGroupResolver locates the id binary on PATH.
func NewIDGroupResolver() (*IDGroupResolver, error) {
	path, err := exec.LookPath("id")
	if err != nil {
		return nil, fmt.Errorf("backend: id binary not found: %w", err)
	}
	return &IDGroupResolver{Path: path}, nil
}

// Groups returns the names of all groups the user belongs to, minus the
// user's own primary group when it shares the username.
func (r *IDGroupResolver) Groups(ctx context.Context, username string) ([]string, error) {
	out, err := exec.CommandContext(ctx, r.Path, "-Gn", username).Output()
	if err != nil {
		return nil, fmt.Errorf("backend: resolve groups for %q: %w", username, err)
	}

	groups := strings.Fields(string(out))
	for i, g := range groups {
		if g == username {
			groups = append(groups[:i], groups[i+1:]...)
			break
		}
	}
	return groups, nil
}
