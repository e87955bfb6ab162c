package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// Uploader picks the upload strategy for each local file: files below the
// threshold go through the SmallUploader, everything else through the
// SessionUploader.
type Uploader struct {
	fs        afero.Fs
	small     *SmallUploader
	large     *SessionUploader
	threshold int64
	logger    *slog.Logger
}

// NewUploader creates an Uploader reading local files from fs. A
// non-positive threshold selects DefaultSmallFileThreshold.
func NewUploader(
	fs afero.Fs, small *SmallUploader, large *SessionUploader, threshold int64, logger *slog.Logger,
) *Uploader {
	if threshold <= 0 {
		threshold = DefaultSmallFileThreshold
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Uploader{fs: fs, small: small, large: large, threshold: threshold, logger: logger}
}

// UploadFile uploads the local file at localPath to remotePath.
func (u *Uploader) UploadFile(ctx context.Context, sess Session, remotePath, localPath string) Result {
	f, err := u.fs.Open(localPath)
	if err != nil {
		return failed(remotePath, ErrInvalidInput, fmt.Errorf("opening %s: %w", localPath, err), 0)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return failed(remotePath, ErrInvalidInput, fmt.Errorf("stat %s: %w", localPath, err), 0)
	}

	if info.IsDir() {
		return failed(remotePath, ErrInvalidInput, fmt.Errorf("%s is a directory", localPath), 0)
	}

	size := info.Size()

	u.logger.Debug("selected upload strategy",
		slog.String("local_path", localPath),
		slog.String("remote_path", remotePath),
		slog.Int64("size", size),
		slog.Bool("chunked", size >= u.threshold),
	)

	if size < u.threshold {
		return u.small.Upload(ctx, sess, remotePath, f, size)
	}

	var fingerprint string

	if u.large.Resumable() {
		fingerprint, err = Fingerprint(f)
		if err == nil {
			_, err = f.Seek(0, io.SeekStart)
		}

		if err != nil {
			return failed(remotePath, ErrInvalidInput, fmt.Errorf("reading %s: %w", localPath, err), 0)
		}
	}

	return u.large.Upload(ctx, sess, remotePath, f, size, fingerprint)
}

// UploadBatch uploads each local path into remoteDir under its base name,
// in order. It stops after the first failure unless keepGoing is set; an
// authentication failure or cancellation always stops the batch. Blank
// entries are skipped.
func (u *Uploader) UploadBatch(
	ctx context.Context, sess Session, remoteDir string, localPaths []string, keepGoing bool,
) []Result {
	results := make([]Result, 0, len(localPaths))

	for _, localPath := range localPaths {
		localPath = strings.TrimSpace(localPath)
		if localPath == "" {
			continue
		}

		remotePath := graph.JoinRemotePath(remoteDir, filepath.Base(localPath))

		res := u.UploadFile(ctx, sess, remotePath, localPath)
		results = append(results, res)

		if res.Success {
			continue
		}

		if !keepGoing || errors.Is(res.Err, ErrAuth) || errors.Is(res.Err, ErrCancelled) {
			u.logger.Warn("stopping upload batch after failure",
				slog.String("remote_path", remotePath),
				slog.Int("remaining", len(localPaths)-len(results)),
			)

			break
		}
	}

	return results
}

// SplitPathList splits a newline-separated list of local paths.
func SplitPathList(list string) []string {
	var out []string

	for line := range strings.Lines(list) {
		if p := strings.TrimSpace(line); p != "" {
			out = append(out, p)
		}
	}

	return out
}
