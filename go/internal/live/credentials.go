package live

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// CredentialProvider resolves the viewer's current access token. An empty token means the
// viewer is not signed in.
type CredentialProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticCredentials always returns the same token
type StaticCredentials string

func (s StaticCredentials) AccessToken(context.Context) (string, error) {
	return string(s), nil
}

// CredentialFunc adapts a function to CredentialProvider
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// FileCredentials reads the token from a file on every call, so a session service can
// rotate it underneath a running view. A missing file means signed out.
type FileCredentials struct {
	Path string
}

func (f FileCredentials) AccessToken(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveToken returns the current token or "" when the provider fails
func resolveToken(ctx context.Context, creds CredentialProvider) string {
	if creds == nil {
		return ""
	}
	token, err := creds.AccessToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve access token")
		return ""
	}
	return strings.TrimSpace(token)
}
