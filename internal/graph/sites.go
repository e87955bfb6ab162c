package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// siteResponse mirrors the Graph API site JSON response.
type siteResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// driveResponse mirrors the Graph API drive JSON response.
type driveResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// drivesListResponse wraps the value array from GET /sites/{id}/drives.
type drivesListResponse struct {
	Value []driveResponse `json:"value"`
}

// SiteLocator renders the "{host}:/sites/{name}" form Graph accepts in
// place of a site ID.
func SiteLocator(hostName, siteName string) string {
	return strings.TrimSuffix(hostName, "/") + ":/sites/" + url.PathEscape(strings.Trim(siteName, "/"))
}

// ResolveSite maps a human-readable site locator (see SiteLocator) to the
// site's opaque ID. A response without an id is reported as ErrNoSiteID.
func (c *Client) ResolveSite(ctx context.Context, locator string) (*Site, error) {
	c.logger.Info("resolving site", slog.String("locator", locator))

	resp, err := c.Do(ctx, http.MethodGet, "/sites/"+locator, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr siteResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("graph: decoding site response: %w", err)
	}

	if sr.ID == "" {
		return nil, ErrNoSiteID
	}

	c.logger.Debug("resolved site",
		slog.String("site_id", sr.ID),
		slog.String("display_name", sr.DisplayName),
	)

	return &Site{
		ID:          sr.ID,
		Name:        sr.Name,
		DisplayName: sr.DisplayName,
		WebURL:      sr.WebURL,
	}, nil
}

// Drives returns the document libraries of a site.
func (c *Client) Drives(ctx context.Context, siteID string) ([]Drive, error) {
	c.logger.Info("listing site drives", slog.String("site_id", siteID))

	resp, err := c.Do(ctx, http.MethodGet, "/sites/"+siteID+"/drives", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dlr drivesListResponse
	if err := json.NewDecoder(resp.Body).Decode(&dlr); err != nil {
		return nil, fmt.Errorf("graph: decoding drives response: %w", err)
	}

	drives := make([]Drive, 0, len(dlr.Value))
	for _, d := range dlr.Value {
		drives = append(drives, Drive(d))
	}

	c.logger.Debug("listed drives", slog.Int("count", len(drives)))

	return drives, nil
}
