package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"firetodo/internal/config"
)

// ErrNoRefreshToken marks a stored token that cannot outlive its access token.
var ErrNoRefreshToken = errors.New("token has no refresh token")

// LoadToken reads an OAuth token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// SaveToken writes token to path with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// CheckToken reports whether the stored token still authorizes the remote
// backend. Expired access tokens are refreshed through the OAuth client.
func CheckToken(ctx context.Context, cfg *config.Config) error {
	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*APITimeout)
	defer cancel()
	if _, err := oauthConfig.TokenSource(ctx, token).Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return nil
}
