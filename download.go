package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download_file <remote-path> <local-dir>",
		Short: "Download a remote file or folder tree",
		Long: `Download a remote file into local-dir, or mirror the contents of a
remote folder (recursively) into local-dir. Existing local files of the same
name are overwritten; missing directories are created. A file that fails to
download is reported and does not stop the others.`,
		Args: cobra.ExactArgs(2),
		RunE: runDownload,
	}
}

func runDownload(cmd *cobra.Command, args []string) error {
	remotePath, localDir := args[0], args[1]

	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	rs, err := newRemoteSession(ctx, cc)
	if err != nil {
		return err
	}

	item, err := rs.Meta.GetItemByPath(ctx, rs.Transfer.Scope, remotePath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", remotePath, err)
	}

	downloader := newDownloader(cc)

	if !item.IsFolder() {
		res := downloader.DownloadFile(ctx, rs.Transfer, item, localDir)
		return reportResults(cc, "Downloaded", []transfer.Result{res})
	}

	cc.Logger.Info("downloading folder",
		slog.String("remote_path", remotePath),
		slog.String("local_dir", localDir),
	)

	results, err := downloader.Download(ctx, rs.Transfer, item.ID, localDir)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", remotePath, err)
	}

	if len(results) == 0 {
		cc.Statusf("No files under %s\n", remotePath)
	}

	return reportResults(cc, "Downloaded", results)
}

func newDownloader(cc *CLIContext) *transfer.Downloader {
	cfg := cc.Cfg
	limiter := transfer.NewBandwidthLimiter(cfg.BandwidthBytesPerSec, cc.Logger)
	walker := transfer.NewWalker(cfg.Transfers.MaxDepth, cc.Logger)

	return transfer.NewDownloader(afero.NewOsFs(), walker, cfg.Transfers.DownloadWorkers, limiter, cc.Logger)
}
