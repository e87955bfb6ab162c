package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

func newTestDownloader(fs afero.Fs, workers int) *Downloader {
	return NewDownloader(fs, NewWalker(0, nil), workers, nil, nil)
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	return string(b)
}

func TestDownload_MirrorsTree(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "a", "a.txt", "alpha")
	drive.addFolder(graph.RootID, "sub", "sub")
	drive.addFile("sub", "b", "b.txt", "bravo")
	drive.addFolder("sub", "deep", "deep")
	drive.addFolder("deep", "empty", "empty")
	drive.addFile("deep", "c", "c.txt", "charlie")

	fs := afero.NewMemMapFs()
	results, err := newTestDownloader(fs, 2).Download(context.Background(), drive.session(), graph.RootID, "/out")
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", results[0].Path)
	assert.Equal(t, "sub/b.txt", results[1].Path)
	assert.Equal(t, "sub/deep/c.txt", results[2].Path)

	for _, r := range results {
		assert.True(t, r.Success, r.FailureDetail)
	}

	assert.Equal(t, int64(5), results[0].BytesTransferred)
	assert.Equal(t, "alpha", readFile(t, fs, "/out/a.txt"))
	assert.Equal(t, "bravo", readFile(t, fs, filepath.Join("/out", "sub", "b.txt")))
	assert.Equal(t, "charlie", readFile(t, fs, filepath.Join("/out", "sub", "deep", "c.txt")))

	isDir, err := afero.IsDir(fs, filepath.Join("/out", "sub", "deep", "empty"))
	require.NoError(t, err)
	assert.True(t, isDir)

	partials, err := afero.Glob(fs, "/out/*.partial")
	require.NoError(t, err)
	assert.Empty(t, partials)
}

func TestDownload_FailureIsolation(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "a", "a.txt", "alpha")
	drive.addFile(graph.RootID, "bad", "bad.txt", "never")
	drive.addFolder(graph.RootID, "sub", "sub")
	drive.addFile("sub", "c", "c.txt", "charlie")
	drive.fetchStatus["bad"] = 403

	fs := afero.NewMemMapFs()
	results, err := newTestDownloader(fs, 1).Download(context.Background(), drive.session(), graph.RootID, "/out")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Err, ErrFileFetch)
	assert.ErrorIs(t, results[1].Err, graph.ErrForbidden)
	assert.Contains(t, results[1].FailureDetail, "fetchFailed")
	assert.True(t, results[2].Success, "sibling subtree still downloaded")

	exists, err := afero.Exists(fs, "/out/bad.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	partials, err := afero.Glob(fs, "/out/.bad.txt.*.partial")
	require.NoError(t, err)
	assert.Empty(t, partials, "partial removed after failure")

	assert.Equal(t, "charlie", readFile(t, fs, filepath.Join("/out", "sub", "c.txt")))
}

func TestDownload_OverwritesExistingFile(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "a", "a.txt", "new content")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/a.txt", []byte("old and longer content"), 0o644))

	results, err := newTestDownloader(fs, 0).Download(context.Background(), drive.session(), graph.RootID, "/out")
	require.NoError(t, err)
	require.True(t, results[0].Success, results[0].FailureDetail)
	assert.Equal(t, "new content", readFile(t, fs, "/out/a.txt"))
}

func TestDownload_SiblingNamedLikePartialFile(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 4} {
		drive := newFakeDrive(t)
		drive.addFile(graph.RootID, "p", "report.partial", "user data")
		drive.addFile(graph.RootID, "r", "report", "final report")

		fs := afero.NewMemMapFs()
		results, err := newTestDownloader(fs, workers).Download(context.Background(), drive.session(), graph.RootID, "/out")
		require.NoError(t, err)
		require.Len(t, results, 2)

		for _, r := range results {
			assert.True(t, r.Success, r.FailureDetail)
		}

		assert.Equal(t, "user data", readFile(t, fs, "/out/report.partial"), "workers=%d", workers)
		assert.Equal(t, "final report", readFile(t, fs, "/out/report"), "workers=%d", workers)

		leftovers, err := afero.Glob(fs, "/out/.*")
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	}
}

func TestDownload_HashMismatchKeepsExistingFile(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "a", "a.txt", "corrupted in transit")
	drive.addFile(graph.RootID, "b", "b.txt", "bravo")
	drive.reportedHash["a"] = "aCgDG9jwBgAAAAAABQAAAAAAAAA="

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/a.txt", []byte("previous"), 0o644))

	results, err := newTestDownloader(fs, 2).Download(context.Background(), drive.session(), graph.RootID, "/out")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Err, ErrFileFetch)
	assert.ErrorIs(t, results[0].Err, ErrHashMismatch)
	assert.Contains(t, results[0].FailureDetail, "aCgDG9jwBgAAAAAABQAAAAAAAAA=")
	assert.Equal(t, "previous", readFile(t, fs, "/out/a.txt"))

	assert.True(t, results[1].Success, results[1].FailureDetail)

	leftovers, err := afero.Glob(fs, "/out/.*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownload_MissingHashSkipsVerification(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "a", "a.txt", "alpha")
	drive.reportedHash["a"] = ""

	fs := afero.NewMemMapFs()
	results, err := newTestDownloader(fs, 0).Download(context.Background(), drive.session(), graph.RootID, "/out")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success, results[0].FailureDetail)
	assert.Equal(t, "alpha", readFile(t, fs, "/out/a.txt"))
}

func TestDownload_IdempotentDirectories(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFolder(graph.RootID, "sub", "sub")
	drive.addFile("sub", "b", "b.txt", "b")

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out/sub", 0o755))

	d := newTestDownloader(fs, 0)

	for range 2 {
		results, err := d.Download(context.Background(), drive.session(), graph.RootID, "/out")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Success)
	}
}

func TestDownload_CancelStopsNewFiles(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	for _, id := range []string{"1", "2", "3"} {
		drive.addFile(graph.RootID, id, id+".txt", id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first fetch cancels the run and holds its response until the
	// client gives up on it.
	drive.onFetch = func(reqCtx context.Context, _ string) {
		cancel()
		<-reqCtx.Done()
	}

	fs := afero.NewMemMapFs()
	results, err := newTestDownloader(fs, 1).Download(ctx, drive.session(), graph.RootID, "/out")
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, "cancelled", r.FailureDetail)
		assert.ErrorIs(t, r.Err, ErrCancelled)
	}

	assert.Equal(t, 1, drive.fetches)
}

func TestDownload_WalkFailureAborts(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)

	_, err := newTestDownloader(afero.NewMemMapFs(), 0).Download(context.Background(), drive.session(), "missing", "/out")
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrNotFound))
}

func TestDownloadFile(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	drive.addFile(graph.RootID, "r", "report.txt", "quarterly")

	fs := afero.NewMemMapFs()
	d := newTestDownloader(fs, 0)

	item := &graph.Item{ID: "r", Name: "report.txt", Kind: graph.KindFile}
	res := d.DownloadFile(context.Background(), drive.session(), item, "/dl")
	require.True(t, res.Success, res.FailureDetail)
	assert.Equal(t, "quarterly", readFile(t, fs, "/dl/report.txt"))

	tampered := &graph.Item{ID: "r", Name: "copy.txt", Kind: graph.KindFile, QuickXorHash: "AAAAAAAAAAAAAAAAAAAAAAAAAAA="}
	res = d.DownloadFile(context.Background(), drive.session(), tampered, "/dl")
	assert.ErrorIs(t, res.Err, ErrHashMismatch)

	exists, err := afero.Exists(fs, "/dl/copy.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	folder := &graph.Item{ID: "f", Name: "f", Kind: graph.KindFolder}
	res = d.DownloadFile(context.Background(), drive.session(), folder, "/dl")
	assert.ErrorIs(t, res.Err, ErrInvalidInput)
}

func TestRoundTrip_UploadThenDownload(t *testing.T) {
	t.Parallel()

	drive := newFakeDrive(t)
	sess := drive.session()

	fs := afero.NewMemMapFs()
	data := patterned(3*ChunkAlignment + 99)
	require.NoError(t, afero.WriteFile(fs, "/src/blob.bin", data, 0o644))

	up := newTestUploader(t, fs, ChunkAlignment, nil)
	res := up.UploadFile(context.Background(), sess, "/blob.bin", "/src/blob.bin")
	require.True(t, res.Success, res.FailureDetail)

	uploaded, ok := drive.file("/blob.bin")
	require.True(t, ok)

	drive.addFile(graph.RootID, "blob", "blob.bin", string(uploaded))

	results, err := newTestDownloader(fs, 0).Download(context.Background(), sess, graph.RootID, "/dst")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)

	got, err := afero.ReadFile(fs, "/dst/blob.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
