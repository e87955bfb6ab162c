package graph

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DriveScope addresses one document library of one site. An empty DriveID
// selects the site's default library.
type DriveScope struct {
	SiteID  string
	DriveID string
}

// prefix returns the API path prefix for the scope, e.g.
// "/sites/{site}/drive" or "/sites/{site}/drives/{drive}". IDs are opaque
// and interpolated as returned by the service.
func (s DriveScope) prefix() string {
	if s.DriveID == "" {
		return "/sites/" + s.SiteID + "/drive"
	}

	return "/sites/" + s.SiteID + "/drives/" + s.DriveID
}

// itemPath returns the API path of an item addressed by ID.
func (s DriveScope) itemPath(itemID string) string {
	return s.prefix() + "/items/" + itemID
}

// pathAddress returns the API path of an item addressed by its remote path,
// in the "root:/a/b:" form. The root itself is "root".
func (s DriveScope) pathAddress(remotePath string) string {
	clean := CleanRemotePath(remotePath)
	if clean == "" {
		return s.prefix() + "/root"
	}

	return s.prefix() + "/root:/" + encodePathSegments(clean) + ":"
}

// String renders the scope for logs and store keys.
func (s DriveScope) String() string {
	if s.DriveID == "" {
		return s.SiteID
	}

	return s.SiteID + "/" + s.DriveID
}

// CleanRemotePath strips leading/trailing slashes and normalizes to NFC.
// Returns "" for root.
func CleanRemotePath(path string) string {
	return norm.NFC.String(strings.Trim(path, "/"))
}

// JoinRemotePath appends name to a "/"-rooted directory path, producing a
// "/"-rooted path without a trailing slash.
func JoinRemotePath(dir, name string) string {
	clean := CleanRemotePath(dir)
	if clean == "" {
		return "/" + norm.NFC.String(name)
	}

	return "/" + clean + "/" + norm.NFC.String(name)
}

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
