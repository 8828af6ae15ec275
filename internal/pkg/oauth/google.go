package oauth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

type GoogleService interface {
	// HTTPClient returns a client that acts as subject through domain-wide
	// delegation.
	HTTPClient(ctx context.Context, subject string) (*http.Client, error)
	// ServiceAccountEmail is the delegating service account.
	ServiceAccountEmail() string
}

type GoogleServiceImpl struct {
	config *jwt.Config
}

// NewGoogleService parses a service-account key in Google's JSON format.
func NewGoogleService(credentialsJSON []byte, scopes []string) (GoogleService, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google service account: %w", err)
	}
	return &GoogleServiceImpl{config: config}, nil
}

func NewGoogleServiceFromFile(path string, scopes []string) (GoogleService, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read google service account: %w", err)
	}
	return NewGoogleService(raw, scopes)
}

func (g *GoogleServiceImpl) HTTPClient(ctx context.Context, subject string) (*http.Client, error) {
	if subject == "" {
		return nil, fmt.Errorf("google delegation requires a subject")
	}
	config := *g.config
	config.Subject = subject
	return config.Client(ctx), nil
}

func (g *GoogleServiceImpl) ServiceAccountEmail() string {
	return g.config.Email
}
