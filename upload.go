package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

// errTransfersFailed is returned when at least one file failed. The failures
// have already been reported, so main exits 1 without repeating them.
var errTransfersFailed = errors.New("transfers failed")

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload_file <remote-dir> <local-paths>...",
		Short: "Upload local files into a remote folder",
		Long: `Upload local files into a remote folder of the document library. Each
local-paths argument may hold several newline-separated paths; "-" reads the
list from stdin. Each file keeps its base name and replaces any remote file
of the same name.

Files below small_file_threshold are sent in one request; larger files go
through an upload session in chunk_size pieces. The batch stops at the first
failure unless --keep-going is set.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runUpload,
	}

	cmd.Flags().Bool("keep-going", false, "continue with the remaining files after a failure")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	localPaths, err := collectLocalPaths(args[1:], cmd.InOrStdin())
	if err != nil {
		return err
	}

	if len(localPaths) == 0 {
		return errors.New("no local paths given")
	}

	uploader, closeStore, err := buildUploader(cmd, cc)
	if err != nil {
		return err
	}
	defer closeStore()

	rs, err := newRemoteSession(ctx, cc)
	if err != nil {
		return err
	}

	cc.Logger.Info("uploading files",
		slog.String("remote_dir", args[0]),
		slog.Int("files", len(localPaths)),
		slog.Bool("keep_going", keepGoing),
	)

	results := uploader.UploadBatch(ctx, rs.Transfer, args[0], localPaths, keepGoing)

	return reportResults(cc, "Uploaded", results)
}

// collectLocalPaths expands newline-separated arguments and "-" (stdin)
// into a flat path list.
func collectLocalPaths(args []string, stdin io.Reader) ([]string, error) {
	var paths []string

	for _, arg := range args {
		if arg != "-" {
			paths = append(paths, transfer.SplitPathList(arg)...)
			continue
		}

		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading path list from stdin: %w", err)
		}

		paths = append(paths, transfer.SplitPathList(string(data))...)
	}

	return paths, nil
}

// buildUploader wires the small-file and session uploaders with the
// configured chunk size, threshold, bandwidth limit and, when resume is
// enabled, the session store. The returned func closes the store.
func buildUploader(cmd *cobra.Command, cc *CLIContext) (*transfer.Uploader, func(), error) {
	cfg := cc.Cfg
	limiter := transfer.NewBandwidthLimiter(cfg.BandwidthBytesPerSec, cc.Logger)
	closeStore := func() {}

	var store *transfer.SessionStore

	if cfg.Transfers.ResumeUploads {
		s, err := openSessionStore(cmd.Context(), cc)
		if err != nil {
			return nil, nil, err
		}

		store = s
		closeStore = func() {
			if err := s.Close(); err != nil {
				cc.Logger.Warn("closing session store", slog.String("error", err.Error()))
			}
		}
	}

	large, err := transfer.NewSessionUploader(cfg.ChunkSizeBytes, store, limiter, cc.Logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	large.Progress = newProgressPrinter(cc)

	small := transfer.NewSmallUploader(limiter, cc.Logger)

	return transfer.NewUploader(afero.NewOsFs(), small, large, cfg.SmallFileThresholdBytes, cc.Logger), closeStore, nil
}
