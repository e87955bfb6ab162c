package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// SessionState is the lifecycle of an upload session.
type SessionState int

const (
	StateCreated SessionState = iota
	StateTransferring
	StateCompleted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateTransferring:
		return "transferring"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadSession is the local view of one large-file upload. NextOffset only
// advances after the service accepts a chunk.
type UploadSession struct {
	RemotePath string
	UploadURL  string
	TotalSize  int64
	NextOffset int64
	State      SessionState
	Resumed    bool

	remote *graph.UploadSession
}

// SessionUploader drives large files through a Graph upload session: create
// the session, PUT the planned chunks strictly in order, and stop at the
// first chunk the service rejects. A failed chunk is never retried and the
// remote session is left alone.
//
// With a SessionStore attached, the session URL and accepted offset are
// persisted after every chunk so a later invocation can pick up where an
// interrupted one stopped.
type SessionUploader struct {
	chunkSize int64
	store     *SessionStore
	limiter   *BandwidthLimiter
	logger    *slog.Logger

	// Progress, when set, observes every accepted chunk.
	Progress ProgressFunc
}

// NewSessionUploader validates chunkSize and returns an uploader. store and
// limiter may be nil.
func NewSessionUploader(
	chunkSize int64, store *SessionStore, limiter *BandwidthLimiter, logger *slog.Logger,
) (*SessionUploader, error) {
	if err := ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SessionUploader{
		chunkSize: chunkSize,
		store:     store,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Resumable reports whether sessions are persisted for resume.
func (u *SessionUploader) Resumable() bool { return u.store != nil }

// Upload sends size bytes of content to remotePath through a new (or, with a
// store and a matching fingerprint, a resumed) upload session. size must be
// positive; zero-byte files belong on the small-file path.
func (u *SessionUploader) Upload(
	ctx context.Context, sess Session, remotePath string, content io.ReaderAt, size int64, fingerprint string,
) Result {
	us, err := u.Begin(ctx, sess, remotePath, size, fingerprint)
	if err != nil {
		kind := ErrSessionCreation
		if errors.Is(err, ErrInvalidInput) {
			kind = ErrInvalidInput
		}

		return failed(remotePath, kind, err, 0)
	}

	return u.Transfer(ctx, sess, us, content, fingerprint)
}

// Begin creates the upload session, or revives a stored one whose size and
// fingerprint still match and which the service still knows about.
func (u *SessionUploader) Begin(
	ctx context.Context, sess Session, remotePath string, size int64, fingerprint string,
) (*UploadSession, error) {
	if size <= 0 {
		return nil, fmt.Errorf("upload session for %s needs a positive size, got %d: %w",
			remotePath, size, ErrInvalidInput)
	}

	us, err := u.resume(ctx, sess, remotePath, size, fingerprint)
	if err != nil {
		return nil, err
	}

	if us != nil {
		return us, nil
	}

	u.logger.Info("creating upload session",
		slog.String("remote_path", remotePath),
		slog.Int64("size", size),
	)

	remote, err := sess.Remote.CreateUploadSession(ctx, sess.Scope, remotePath)
	if err != nil {
		return nil, err
	}

	us = &UploadSession{
		RemotePath: remotePath,
		UploadURL:  remote.UploadURL,
		TotalSize:  size,
		State:      StateCreated,
		remote:     remote,
	}

	if u.store != nil && fingerprint != "" {
		rec := &SessionRecord{
			Scope:       sess.Scope.String(),
			RemotePath:  remotePath,
			UploadURL:   remote.UploadURL,
			Fingerprint: fingerprint,
			Size:        size,
			ExpiresAt:   remote.ExpirationTime,
		}

		if err := u.store.Save(ctx, rec); err != nil {
			u.logger.Warn("could not persist upload session",
				slog.String("remote_path", remotePath),
				slog.String("error", err.Error()),
			)
		}
	}

	return us, nil
}

// resume returns a live stored session for remotePath, or nil, nil when a
// new one must be created. Mismatched records and records the service no
// longer accepts are dropped. When the service cannot be asked (cancellation,
// network failure, throttling, 5xx) the record is kept and the error returned
// so a later run can still resume.
func (u *SessionUploader) resume(
	ctx context.Context, sess Session, remotePath string, size int64, fingerprint string,
) (*UploadSession, error) {
	if u.store == nil || fingerprint == "" {
		return nil, nil
	}

	scope := sess.Scope.String()

	rec, err := u.store.Load(ctx, scope, remotePath)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}

		u.logger.Warn("could not load stored upload session",
			slog.String("remote_path", remotePath),
			slog.String("error", err.Error()),
		)

		return nil, nil
	}

	if rec == nil {
		return nil, nil
	}

	if rec.Size != size || rec.Fingerprint != fingerprint {
		u.logger.Info("local file changed since upload session was created, starting over",
			slog.String("remote_path", remotePath),
		)
		u.forget(ctx, scope, remotePath)

		return nil, nil
	}

	remote := &graph.UploadSession{UploadURL: rec.UploadURL, ExpirationTime: rec.ExpiresAt}

	status, err := sess.Remote.QueryUploadSession(ctx, remote)
	if err != nil {
		if !sessionRejected(err) {
			u.logger.Warn("could not check stored upload session, keeping it",
				slog.String("remote_path", remotePath),
				slog.String("error", err.Error()),
			)

			return nil, fmt.Errorf("checking stored upload session for %s: %w", remotePath, err)
		}

		u.logger.Info("stored upload session is no longer usable, starting over",
			slog.String("remote_path", remotePath),
			slog.String("error", err.Error()),
		)
		u.forget(ctx, scope, remotePath)

		return nil, nil
	}

	offset, ok := parseNextExpected(status.NextExpectedRanges)
	if !ok || offset > size {
		u.forget(ctx, scope, remotePath)
		return nil, nil
	}

	if !status.ExpirationTime.IsZero() {
		remote.ExpirationTime = status.ExpirationTime
	}

	u.logger.Info("resuming upload session",
		slog.String("remote_path", remotePath),
		slog.Int64("offset", offset),
		slog.Int64("size", size),
	)

	return &UploadSession{
		RemotePath: remotePath,
		UploadURL:  rec.UploadURL,
		TotalSize:  size,
		NextOffset: offset,
		State:      StateCreated,
		Resumed:    true,
		remote:     remote,
	}, nil
}

// Transfer PUTs the chunks from us.NextOffset to the end of the file. The
// first rejected chunk moves the session to StateFailed and ends the upload.
func (u *SessionUploader) Transfer(
	ctx context.Context, sess Session, us *UploadSession, content io.ReaderAt, fingerprint string,
) Result {
	plan, err := PlanChunks(us.TotalSize, u.chunkSize)
	if err == nil {
		plan, err = plan.From(us.NextOffset)
	}

	if err != nil {
		us.State = StateFailed
		return failed(us.RemotePath, ErrInvalidInput, err, us.NextOffset)
	}

	us.State = StateTransferring
	scope := sess.Scope.String()

	u.logger.Debug("transferring chunks",
		slog.String("remote_path", us.RemotePath),
		slog.Int64("chunks", plan.Count()),
		slog.Int64("start", plan.Start()),
	)

	for c := range plan.All() {
		if err := ctx.Err(); err != nil {
			us.State = StateFailed
			return failed(us.RemotePath, ErrChunkTransfer, err, us.NextOffset)
		}

		body := u.limiter.WrapReader(ctx, io.NewSectionReader(content, c.Offset, c.Length))

		if _, err := sess.Remote.UploadChunk(ctx, us.remote, body, c.Offset, c.Length, c.Total); err != nil {
			us.State = StateFailed

			u.logger.Error("chunk rejected, abandoning upload",
				slog.String("remote_path", us.RemotePath),
				slog.String("range", c.ContentRange()),
				slog.String("error", err.Error()),
			)

			return failed(us.RemotePath, ErrChunkTransfer, err, us.NextOffset)
		}

		us.NextOffset = c.Offset + c.Length

		if u.store != nil && fingerprint != "" && !c.Last() {
			if err := u.store.UpdateOffset(ctx, scope, us.RemotePath, us.NextOffset); err != nil {
				u.logger.Warn("could not persist upload offset",
					slog.String("remote_path", us.RemotePath),
					slog.String("error", err.Error()),
				)
			}
		}

		if u.Progress != nil {
			u.Progress(Progress{Path: us.RemotePath, Transferred: us.NextOffset, Total: us.TotalSize})
		}
	}

	us.State = StateCompleted

	if u.store != nil && fingerprint != "" {
		u.forget(ctx, scope, us.RemotePath)
	}

	u.logger.Info("upload session complete",
		slog.String("remote_path", us.RemotePath),
		slog.Int64("size", us.TotalSize),
	)

	return succeeded(us.RemotePath, us.TotalSize)
}

func (u *SessionUploader) forget(ctx context.Context, scope, remotePath string) {
	if err := u.store.Delete(context.WithoutCancel(ctx), scope, remotePath); err != nil {
		u.logger.Warn("could not delete stored upload session",
			slog.String("remote_path", remotePath),
			slog.String("error", err.Error()),
		)
	}
}

// sessionRejected reports whether err is the service refusing a stored
// upload URL outright, as opposed to a failure to reach it.
func sessionRejected(err error) bool {
	return errors.Is(err, graph.ErrNotFound) || errors.Is(err, graph.ErrGone) ||
		errors.Is(err, graph.ErrBadRequest) || errors.Is(err, graph.ErrRangeNotSatisfiable)
}

// parseNextExpected returns the start of the first range in a
// nextExpectedRanges list ("655360-" or "655360-1048575").
func parseNextExpected(ranges []string) (int64, bool) {
	if len(ranges) == 0 {
		return 0, false
	}

	start, _, _ := strings.Cut(ranges[0], "-")

	n, err := strconv.ParseInt(start, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}
