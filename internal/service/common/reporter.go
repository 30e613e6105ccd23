//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// DetectReporter gathers host and user information so responders know who raised an alert.
func DetectReporter() (*domain.Reporter, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &domain.Reporter{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
