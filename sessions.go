package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

const stateDirPerms = 0o700

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect or clean saved upload sessions",
		Long: `Upload sessions are saved when resume_uploads is enabled, so an interrupted
large upload continues where it stopped on the next upload_file of the same
file. These commands inspect and prune that state.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved upload sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsList,
	}

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete expired and stale upload sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsClean,
	}
	clean.Flags().Duration("older-than", transfer.StaleSessionAge, "also delete sessions not updated within this window")

	cmd.AddCommand(list, clean)

	return cmd
}

// openSessionStore opens the session database at the resolved state path,
// creating its directory if needed.
func openSessionStore(ctx context.Context, cc *CLIContext) (*transfer.SessionStore, error) {
	path := cc.Cfg.StatePath
	if path == "" {
		return nil, errors.New("cannot determine state database path")
	}

	if err := os.MkdirAll(filepath.Dir(path), stateDirPerms); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	return transfer.OpenSessionStore(ctx, path, cc.Logger)
}

// sessionJSON is the JSON output schema for sessions list.
type sessionJSON struct {
	Scope      string    `json:"scope"`
	RemotePath string    `json:"remote_path"`
	Size       int64     `json:"size"`
	NextOffset int64     `json:"next_offset"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	store, err := openSessionStore(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		out := make([]sessionJSON, 0, len(records))
		for _, r := range records {
			out = append(out, sessionJSON{
				Scope:      r.Scope,
				RemotePath: r.RemotePath,
				Size:       r.Size,
				NextOffset: r.NextOffset,
				ExpiresAt:  r.ExpiresAt,
				UpdatedAt:  r.UpdatedAt,
			})
		}

		return printJSON(cc.Out, out)
	}

	if len(records) == 0 {
		cc.Statusf("No saved upload sessions\n")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RemotePath,
			formatSize(r.NextOffset) + " / " + formatSize(r.Size),
			formatExpiry(r.ExpiresAt),
			r.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	printTable(cc.Out, []string{"REMOTE PATH", "PROGRESS", "EXPIRES", "UPDATED"}, rows)

	return nil
}

func runSessionsClean(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	maxAge, _ := cmd.Flags().GetDuration("older-than")

	store, err := openSessionStore(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.CleanStale(cmd.Context(), maxAge)
	if err != nil {
		return err
	}

	cc.Statusf("Removed %d upload session(s)\n", n)

	return nil
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	if time.Until(t) <= 0 {
		return "expired"
	}

	return t.Local().Format(time.DateTime)
}
