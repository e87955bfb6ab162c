package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DownloadContent streams the content of a file item to w and returns the
// number of bytes written. The service answers with a redirect to a
// pre-authenticated URL which the HTTP client follows; that URL is never
// logged. Non-2xx responses are returned as *GraphError before anything is
// written to w.
func (c *Client) DownloadContent(ctx context.Context, scope DriveScope, itemID string, w io.Writer) (int64, error) {
	c.logger.Info("downloading item",
		slog.String("scope", scope.String()),
		slog.String("item_id", itemID),
	)

	url := c.baseURL + scope.itemPath(itemID) + "/content"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("graph: creating download request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return 0, fmt.Errorf("graph: download: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("graph: download request failed: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return 0, newGraphError(resp)
	}
	defer resp.Body.Close()

	n, copyErr := io.Copy(w, resp.Body)
	if copyErr != nil {
		c.logger.Error("streaming download content failed",
			slog.String("item_id", itemID),
			slog.String("error", copyErr.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	c.logger.Debug("download complete",
		slog.String("item_id", itemID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
