package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

// DefaultScope requests every application permission granted to the app
// registration on Microsoft Graph.
const DefaultScope = "https://graph.microsoft.com/.default"

// ErrNoAccessToken is returned when the token endpoint answers without an
// access token.
var ErrNoAccessToken = errors.New("graph: token response has no access_token")

// Credentials identify an Azure AD app registration using the
// client-credentials grant.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// TokenURL overrides the Azure AD endpoint derived from TenantID.
	TokenURL string
}

// Validate reports the first missing credential field.
func (c Credentials) Validate() error {
	switch {
	case c.TenantID == "" && c.TokenURL == "":
		return errors.New("tenant id is required")
	case c.ClientID == "":
		return errors.New("client id is required")
	case c.ClientSecret == "":
		return errors.New("client secret is required")
	}

	return nil
}

// StaticToken is a bearer token fixed for the lifetime of one invocation.
// There is no refresh: a transfer that outlives the token fails with
// ErrUnauthorized.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoAccessToken
	}

	return string(t), nil
}

// FetchToken performs a single client-credentials exchange and returns the
// resulting access token. httpClient may be nil.
func FetchToken(ctx context.Context, creds Credentials, httpClient *http.Client, logger *slog.Logger) (StaticToken, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := creds.Validate(); err != nil {
		return "", fmt.Errorf("graph: invalid credentials: %w", err)
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = microsoft.AzureADEndpoint(creds.TenantID).TokenURL
	}

	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{DefaultScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	logger.Info("requesting access token",
		slog.String("tenant_id", creds.TenantID),
		slog.String("client_id", creds.ClientID),
	)

	tok, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("graph: client credentials exchange: %w", err)
	}

	if tok.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	logger.Debug("access token acquired", slog.Time("expiry", tok.Expiry))

	return StaticToken(tok.AccessToken), nil
}
