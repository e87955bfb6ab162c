package transfer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
	"github.com/tonimelisma/sharepoint-go/pkg/quickxorhash"
)

const (
	// DefaultDownloadWorkers is the default number of concurrent file fetches.
	DefaultDownloadWorkers = 4

	partialSuffix = ".partial"
	dirPerms      = 0o755
	filePerms     = 0o644
)

// ErrHashMismatch is the cause of a fetch whose content does not match the
// QuickXorHash the service reported for the item.
var ErrHashMismatch = errors.New("content hash mismatch")

// Downloader mirrors remote folders into a local directory. A file that
// fails to download is reported in its own Result and does not stop its
// siblings.
type Downloader struct {
	fs      afero.Fs
	walker  *Walker
	workers int
	limiter *BandwidthLimiter
	logger  *slog.Logger
}

// NewDownloader creates a Downloader writing to fs. A non-positive workers
// selects DefaultDownloadWorkers. limiter may be nil.
func NewDownloader(
	fs afero.Fs, walker *Walker, workers int, limiter *BandwidthLimiter, logger *slog.Logger,
) *Downloader {
	if workers <= 0 {
		workers = DefaultDownloadWorkers
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Downloader{fs: fs, walker: walker, workers: workers, limiter: limiter, logger: logger}
}

// Download walks folderID and materializes it under localRoot: folders
// become directories (created if absent) and files are fetched by a bounded
// pool of workers. Results are returned in manifest order, one per file.
// The returned error is reserved for failures that prevent the download
// as a whole: the walk itself, or local directory creation.
func (d *Downloader) Download(ctx context.Context, sess Session, folderID, localRoot string) ([]Result, error) {
	manifest, err := d.walker.Walk(ctx, sess, folderID)
	if err != nil {
		return nil, err
	}

	if err := d.fs.MkdirAll(localRoot, dirPerms); err != nil {
		return nil, fmt.Errorf("transfer: creating %s: %w", localRoot, err)
	}

	var files []ManifestEntry

	// Pre-order guarantees parents are created before their children.
	for _, e := range manifest {
		if !e.IsFolder() {
			files = append(files, e)
			continue
		}

		dir := localTarget(localRoot, e.Path)
		if err := d.fs.MkdirAll(dir, dirPerms); err != nil {
			return nil, fmt.Errorf("transfer: creating %s: %w", dir, err)
		}
	}

	d.logger.Info("downloading files",
		slog.String("folder_id", folderID),
		slog.String("local_root", localRoot),
		slog.Int("files", len(files)),
		slog.Int("workers", d.workers),
	)

	results := make([]Result, len(files))

	var g errgroup.Group
	g.SetLimit(d.workers)

	for i, e := range files {
		if err := ctx.Err(); err != nil {
			results[i] = failed(e.Path, ErrFileFetch, err, 0)
			continue
		}

		g.Go(func() error {
			results[i] = d.fetch(ctx, sess, e.ID, e.QuickXorHash, e.Path, localTarget(localRoot, e.Path))
			return nil
		})
	}

	_ = g.Wait() // workers never return errors; failures live in results

	return results, nil
}

// DownloadFile fetches a single file item into localDir under its own name.
func (d *Downloader) DownloadFile(ctx context.Context, sess Session, item *graph.Item, localDir string) Result {
	name := norm.NFC.String(item.Name)

	if !item.IsFile() || !validEntryName(name) {
		return failed(name, ErrInvalidInput, fmt.Errorf("%q is not a downloadable file", item.Name), 0)
	}

	if err := d.fs.MkdirAll(localDir, dirPerms); err != nil {
		return failed(name, ErrFileFetch, fmt.Errorf("creating %s: %w", localDir, err), 0)
	}

	return d.fetch(ctx, sess, item.ID, item.QuickXorHash, name, filepath.Join(localDir, name))
}

// fetch streams one file into a uniquely named hidden sibling of target and
// renames it over target only once the content is complete and, when the
// service reported one, its QuickXorHash matches wantHash.
func (d *Downloader) fetch(ctx context.Context, sess Session, itemID, wantHash, path, target string) Result {
	if err := ctx.Err(); err != nil {
		return failed(path, ErrFileFetch, err, 0)
	}

	f, err := afero.TempFile(d.fs, filepath.Dir(target), "."+filepath.Base(target)+".*"+partialSuffix)
	if err != nil {
		return failed(path, ErrFileFetch, fmt.Errorf("creating temporary file for %s: %w", target, err), 0)
	}

	partial := f.Name()
	hasher := quickxorhash.New()

	n, err := sess.Remote.DownloadContent(ctx, sess.Scope, itemID, d.limiter.WrapWriter(ctx, io.MultiWriter(f, hasher)))
	closeErr := f.Close()

	if err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", partial, closeErr)
	}

	if err == nil && wantHash != "" {
		if got := base64.StdEncoding.EncodeToString(hasher.Sum(nil)); got != wantHash {
			err = fmt.Errorf("%w: got %s, service reported %s", ErrHashMismatch, got, wantHash)
		}
	}

	if err == nil {
		err = d.fs.Chmod(partial, filePerms)
	}

	if err == nil {
		err = d.fs.Rename(partial, target)
	}

	if err != nil {
		if rmErr := d.fs.Remove(partial); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.logger.Warn("could not remove partial download",
				slog.String("path", partial),
				slog.String("error", rmErr.Error()),
			)
		}

		d.logger.Error("file download failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return failed(path, ErrFileFetch, err, n)
	}

	d.logger.Debug("file downloaded",
		slog.String("path", path),
		slog.Int64("bytes", n),
		slog.Bool("hash_verified", wantHash != ""),
	)

	return succeeded(path, n)
}

func localTarget(root, manifestPath string) string {
	return filepath.Join(root, filepath.FromSlash(manifestPath))
}
