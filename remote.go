package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/sharepoint-go/internal/config"
	"github.com/tonimelisma/sharepoint-go/internal/graph"
	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

// errAuthFailed marks token acquisition and site resolution failures. They
// abort the whole invocation before any file is touched.
var errAuthFailed = errors.New("authentication failed")

// RemoteSession holds the authenticated clients and resolved site for one
// invocation. Metadata requests use a client with the configured timeout;
// content transfers use one without, since a large chunk or download can
// legitimately outlast it.
type RemoteSession struct {
	Meta     *graph.Client
	Transfer transfer.Session
	Site     *graph.Site
}

// newRemoteSession acquires a bearer token, resolves the configured site and
// binds the drive scope every transfer will use.
func newRemoteSession(ctx context.Context, cc *CLIContext) (*RemoteSession, error) {
	cfg := cc.Cfg
	if err := cfg.RequireRemote(); err != nil {
		return nil, fmt.Errorf("incomplete configuration:\n%w", err)
	}

	metaHTTP := &http.Client{Timeout: cfg.Timeout}

	token, err := acquireToken(ctx, cfg, metaHTTP, cc.Logger)
	if err != nil {
		return nil, err
	}

	meta := graph.NewClient(cc.GraphURL, metaHTTP, token, cc.Logger, cfg.Network.UserAgent)
	meta.SetMaxRetries(cfg.Transfers.MaxRetries)

	site, err := meta.ResolveSite(ctx, graph.SiteLocator(cfg.Remote.HostName, cfg.Remote.SiteName))
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: resolving site %s on %s: %w", errAuthFailed, cfg.Remote.SiteName, cfg.Remote.HostName, err)
		}

		return nil, fmt.Errorf("resolving site %s on %s: %w", cfg.Remote.SiteName, cfg.Remote.HostName, err)
	}

	cc.Logger.Debug("site resolved",
		slog.String("site_id", site.ID),
		slog.String("drive_id", cfg.Remote.DriveID),
	)

	content := graph.NewClient(cc.GraphURL, &http.Client{}, token, cc.Logger, cfg.Network.UserAgent)
	content.SetMaxRetries(cfg.Transfers.MaxRetries)

	scope := graph.DriveScope{SiteID: site.ID, DriveID: cfg.Remote.DriveID}

	return &RemoteSession{
		Meta:     meta,
		Transfer: transfer.NewSession(scope, content),
		Site:     site,
	}, nil
}

// acquireToken uses a pre-issued access token when one is configured and
// otherwise performs a single client-credentials exchange.
func acquireToken(ctx context.Context, cfg *config.Resolved, httpClient *http.Client, logger *slog.Logger) (graph.TokenSource, error) {
	if cfg.AccessToken != "" {
		logger.Debug("using access token from environment")
		return graph.StaticToken(cfg.AccessToken), nil
	}

	token, err := graph.FetchToken(ctx, graph.Credentials{
		TenantID:     cfg.Remote.TenantID,
		ClientID:     cfg.Remote.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAuthFailed, err)
	}

	return token, nil
}

func isAuthError(err error) bool {
	return errors.Is(err, graph.ErrUnauthorized) ||
		errors.Is(err, graph.ErrForbidden) ||
		errors.Is(err, graph.ErrNoSiteID)
}
