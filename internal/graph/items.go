package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// listChildrenPageSize is the $top value for ListChildren requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listChildrenPageSize = 200

// RootID addresses the root folder of a drive in ID-based calls.
const RootID = "root"

// driveItemResponse mirrors the Graph API driveItem JSON.
// Unexported; callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	WebURL               string       `json:"webUrl"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
}

type fileFacet struct {
	MimeType string       `json:"mimeType"`
	Hashes   *hashesFacet `json:"hashes"`
}

type hashesFacet struct {
	QuickXorHash string `json:"quickXorHash"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// listChildrenResponse is one page of a children listing. A page without
// "value" decodes to an empty slice.
type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// toItem normalizes a Graph API driveItem response into our Item type.
// The folder facet wins when a malformed response carries both facets.
func (d *driveItemResponse) toItem() Item {
	item := Item{
		ID:     d.ID,
		Name:   d.Name,
		Size:   d.Size,
		WebURL: d.WebURL,
	}

	switch {
	case d.Folder != nil:
		item.Kind = KindFolder
		item.ChildCount = d.Folder.ChildCount
	case d.File != nil:
		item.Kind = KindFile
		item.MimeType = d.File.MimeType

		if d.File.Hashes != nil {
			item.QuickXorHash = d.File.Hashes.QuickXorHash
		}
	default:
		item.Kind = KindUnknown
	}

	if d.LastModifiedDateTime != "" {
		if t, err := time.Parse(time.RFC3339, d.LastModifiedDateTime); err == nil {
			item.ModifiedAt = t
		}
	}

	return item
}

// fetchItem fetches a single drive item from the given API path and decodes it.
func (c *Client) fetchItem(ctx context.Context, apiPath string) (*Item, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}

// GetItem retrieves a single drive item by ID. Use RootID for the drive root.
func (c *Client) GetItem(ctx context.Context, scope DriveScope, itemID string) (*Item, error) {
	c.logger.Info("getting item",
		slog.String("scope", scope.String()),
		slog.String("item_id", itemID),
	)

	if itemID == RootID {
		return c.fetchItem(ctx, scope.prefix()+"/root")
	}

	return c.fetchItem(ctx, scope.itemPath(itemID))
}

// GetItemByPath retrieves a drive item by its "/"-rooted remote path.
// "/" and "" address the drive root.
func (c *Client) GetItemByPath(ctx context.Context, scope DriveScope, remotePath string) (*Item, error) {
	c.logger.Info("getting item by path",
		slog.String("scope", scope.String()),
		slog.String("remote_path", remotePath),
	)

	return c.fetchItem(ctx, scope.pathAddress(remotePath))
}

// ListChildren returns all children of a folder in listing order, handling
// pagination automatically. Use RootID for the drive root.
func (c *Client) ListChildren(ctx context.Context, scope DriveScope, folderID string) ([]Item, error) {
	apiPath := scope.itemPath(folderID) + "/children"
	if folderID == RootID {
		apiPath = scope.prefix() + "/root/children"
	}

	c.logger.Debug("listing children",
		slog.String("scope", scope.String()),
		slog.String("folder_id", folderID),
	)

	apiPath = fmt.Sprintf("%s?$top=%d", apiPath, listChildrenPageSize)

	var items []Item

	for page := 1; apiPath != ""; page++ {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath, page)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
	}

	c.logger.Debug("listed children",
		slog.String("folder_id", folderID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// listChildrenPage fetches a single page of children and returns the items
// and the next page path (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, path string, page int) ([]Item, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem())
	}

	c.logger.Debug("fetched children page",
		slog.Int("page", page),
		slog.Int("count", len(items)),
	)

	var nextPath string
	if lcr.NextLink != "" {
		var stripErr error

		nextPath, stripErr = c.stripBaseURL(lcr.NextLink)
		if stripErr != nil {
			return nil, "", stripErr
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}
