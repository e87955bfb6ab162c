package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// smallUploadContentType is the content type the small-file PUT declares.
// The service stores the bytes verbatim regardless.
const smallUploadContentType = "text/plain"

// Upload session request/response types for Graph API JSON serialization.
type createUploadSessionRequest struct {
	Item uploadSessionItem `json:"item"`
}

type uploadSessionItem struct {
	ConflictBehavior string `json:"@microsoft.graph.conflictBehavior"` //nolint:tagliatelle // Graph API annotation key
}

type uploadSessionResponse struct {
	UploadURL          string   `json:"uploadUrl"`
	ExpirationDateTime string   `json:"expirationDateTime"`
	NextExpectedRanges []string `json:"nextExpectedRanges"`
}

// PutSmallFile uploads content to remotePath in a single PUT, replacing any
// existing item at that path. It is never retried: the reader is consumed
// by the first attempt.
func (c *Client) PutSmallFile(
	ctx context.Context, scope DriveScope, remotePath string, r io.Reader, size int64,
) (*Item, error) {
	c.logger.Info("small file upload",
		slog.String("scope", scope.String()),
		slog.String("remote_path", remotePath),
		slog.Int64("size", size),
	)

	url := c.baseURL + scope.pathAddress(remotePath) + "/content"

	// A zero ContentLength with a non-nil body would be sent chunked.
	if r == nil || size == 0 {
		r = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, r)
	if err != nil {
		return nil, fmt.Errorf("graph: creating small upload request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return nil, fmt.Errorf("graph: small upload: %w", err)
	}

	req.Header.Set("Content-Type", smallUploadContentType)
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("small upload request failed",
			slog.String("remote_path", remotePath),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("graph: small upload request failed: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, newGraphError(resp)
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
		return nil, fmt.Errorf("graph: decoding small upload response: %w", decErr)
	}

	item := dir.toItem()

	return &item, nil
}

// CreateUploadSession opens a resumable upload session for remotePath with
// conflict behavior "replace". A response without uploadUrl is reported as
// ErrNoUploadURL.
func (c *Client) CreateUploadSession(
	ctx context.Context, scope DriveScope, remotePath string,
) (*UploadSession, error) {
	c.logger.Info("creating upload session",
		slog.String("scope", scope.String()),
		slog.String("remote_path", remotePath),
	)

	body, err := json.Marshal(createUploadSessionRequest{
		Item: uploadSessionItem{ConflictBehavior: "replace"},
	})
	if err != nil {
		return nil, fmt.Errorf("graph: marshaling upload session request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, scope.pathAddress(remotePath)+"/createUploadSession", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	usr, err := c.decodeSessionResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	if usr.UploadURL == "" {
		return nil, ErrNoUploadURL
	}

	session := &UploadSession{
		UploadURL:      usr.UploadURL,
		ExpirationTime: c.parseExpiration(usr.ExpirationDateTime),
	}

	c.logger.Debug("upload session created",
		slog.Time("expires", session.ExpirationTime),
	)

	return session, nil
}

// UploadChunk PUTs one byte range to an upload session. It returns the
// completed Item when the service reports the upload finished (200/201)
// and nil for an accepted intermediate chunk (202). The bearer token is
// sent alongside the range headers.
func (c *Client) UploadChunk(
	ctx context.Context, session *UploadSession, chunk io.Reader,
	offset, length, total int64,
) (*Item, error) {
	c.logger.Debug("uploading chunk",
		slog.Int64("offset", offset),
		slog.Int64("length", length),
		slog.Int64("total", total),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, chunk)
	if err != nil {
		return nil, fmt.Errorf("graph: creating chunk upload request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return nil, fmt.Errorf("graph: chunk upload: %w", err)
	}

	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total))
	req.ContentLength = length

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("chunk upload request failed",
			slog.Int64("offset", offset),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("graph: chunk upload request failed: %w", err)
	}

	return c.handleChunkResponse(resp)
}

// handleChunkResponse processes the HTTP response from an upload chunk request.
// 202 Accepted means intermediate chunk; 200/201 means upload complete with item data.
func (c *Client) handleChunkResponse(resp *http.Response) (*Item, error) {
	switch resp.StatusCode {
	case http.StatusAccepted:
		defer resp.Body.Close()

		// Drain body to reuse connection.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return nil, fmt.Errorf("graph: draining chunk response body: %w", drainErr)
		}

		return nil, nil

	case http.StatusOK, http.StatusCreated:
		defer resp.Body.Close()

		var dir driveItemResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
			return nil, fmt.Errorf("graph: decoding final chunk response: %w", decErr)
		}

		item := dir.toItem()

		c.logger.Debug("upload complete",
			slog.String("item_id", item.ID),
			slog.String("item_name", item.Name),
		)

		return &item, nil

	default:
		graphErr := newGraphError(resp)

		c.logger.Error("chunk upload failed",
			slog.Int("status", resp.StatusCode),
		)

		return nil, graphErr
	}
}

// QueryUploadSession asks the service which byte ranges it still expects.
// Used before resuming a persisted session. An expired or unknown session
// is reported as ErrNotFound or ErrGone through GraphError.
func (c *Client) QueryUploadSession(
	ctx context.Context, session *UploadSession,
) (*UploadSessionStatus, error) {
	c.logger.Info("querying upload session status")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, session.UploadURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("graph: creating query session request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: query upload session request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newGraphError(resp)
	}
	defer resp.Body.Close()

	usr, err := c.decodeSessionResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	status := &UploadSessionStatus{
		UploadURL:          session.UploadURL,
		ExpirationTime:     c.parseExpiration(usr.ExpirationDateTime),
		NextExpectedRanges: usr.NextExpectedRanges,
	}

	c.logger.Debug("upload session status",
		slog.Int("pending_ranges", len(status.NextExpectedRanges)),
	)

	return status, nil
}

func (c *Client) decodeSessionResponse(r io.Reader) (*uploadSessionResponse, error) {
	var usr uploadSessionResponse
	if err := json.NewDecoder(r).Decode(&usr); err != nil {
		return nil, fmt.Errorf("graph: decoding upload session response: %w", err)
	}

	return &usr, nil
}

// parseExpiration parses an RFC3339 expiration, returning the zero time
// (and logging) when the service sends something unparseable.
func (c *Client) parseExpiration(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.logger.Warn("invalid upload session expiration, using zero time",
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t
}
