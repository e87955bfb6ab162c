package transfer

import (
	"context"
	"io"
	"log/slog"
)

// DefaultSmallFileThreshold is the size below which files are uploaded in a
// single request (2^27 bytes).
const DefaultSmallFileThreshold = 1 << 27

// SmallUploader uploads a whole file in one PUT to the path-addressed item,
// replacing whatever is there. It never retries.
type SmallUploader struct {
	limiter *BandwidthLimiter
	logger  *slog.Logger
}

// NewSmallUploader creates a SmallUploader. limiter may be nil.
func NewSmallUploader(limiter *BandwidthLimiter, logger *slog.Logger) *SmallUploader {
	if logger == nil {
		logger = slog.Default()
	}

	return &SmallUploader{limiter: limiter, logger: logger}
}

// Upload sends size bytes from r to remotePath. A non-2xx answer yields a
// failed Result whose FailureDetail is the response body.
func (u *SmallUploader) Upload(ctx context.Context, sess Session, remotePath string, r io.Reader, size int64) Result {
	if size < 0 {
		return failed(remotePath, ErrInvalidInput, errNegativeSize(size), 0)
	}

	if err := ctx.Err(); err != nil {
		return failed(remotePath, ErrChunkTransfer, err, 0)
	}

	u.logger.Info("uploading small file",
		slog.String("remote_path", remotePath),
		slog.Int64("size", size),
	)

	item, err := sess.Remote.PutSmallFile(ctx, sess.Scope, remotePath, u.limiter.WrapReader(ctx, r), size)
	if err != nil {
		u.logger.Error("small upload failed",
			slog.String("remote_path", remotePath),
			slog.String("error", err.Error()),
		)

		return failed(remotePath, ErrChunkTransfer, err, 0)
	}

	u.logger.Debug("small upload complete",
		slog.String("remote_path", remotePath),
		slog.String("item_id", item.ID),
	)

	return succeeded(remotePath, size)
}
