// Package install manages the per-installation identifier.
package install

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// KeyInstallationID is the configuration key holding the identifier.
const KeyInstallationID = "installation_id"

// Store is the configuration storage the identifier lives in.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	PutString(ctx context.Context, key, value string) error
}

// ID returns the installation identifier, generating and persisting a random
// one the first time it is asked for.
func ID(ctx context.Context, s Store) (string, error) {
	id, ok, err := s.GetString(ctx, KeyInstallationID)
	if err != nil {
		return "", fmt.Errorf("failed to read installation id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.PutString(ctx, KeyInstallationID, id); err != nil {
		return "", fmt.Errorf("failed to store installation id: %w", err)
	}
	return id, nil
}
