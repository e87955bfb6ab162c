package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
	"github.com/tonimelisma/sharepoint-go/internal/transfer"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [remote-path]",
		Short: "List files and folders",
		Long: `List the children of a remote folder (the library root by default).
With --recursive the whole tree is listed with paths relative to the folder.
With --drives the site's document libraries are listed instead, to pick a
drive_id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLs,
	}

	cmd.Flags().BoolP("recursive", "r", false, "list the whole tree")
	cmd.Flags().Bool("drives", false, "list the site's document libraries")

	return cmd
}

// lsJSONItem is the JSON output schema for a single entry in ls output.
type lsJSONItem struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
	WebURL   string `json:"web_url,omitempty"`
}

// driveJSON is the JSON output schema for ls --drives.
type driveJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	WebURL string `json:"web_url,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	recursive, _ := cmd.Flags().GetBool("recursive")
	drives, _ := cmd.Flags().GetBool("drives")

	remotePath := "/"
	if len(args) > 0 {
		remotePath = args[0]
	}

	rs, err := newRemoteSession(ctx, cc)
	if err != nil {
		return err
	}

	if drives {
		list, err := rs.Meta.Drives(ctx, rs.Site.ID)
		if err != nil {
			return fmt.Errorf("listing drives of %s: %w", rs.Site.DisplayName, err)
		}

		return printDrives(cc, list)
	}

	item, err := rs.Meta.GetItemByPath(ctx, rs.Transfer.Scope, remotePath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", remotePath, err)
	}

	if !item.IsFolder() {
		return printManifest(cc, []transfer.ManifestEntry{entryFromItem(item)})
	}

	// Listing goes through the metadata client so it honors the timeout.
	sess := transfer.NewSession(rs.Transfer.Scope, rs.Meta)

	if recursive {
		walker := transfer.NewWalker(cc.Cfg.Transfers.MaxDepth, cc.Logger)

		manifest, err := walker.Walk(ctx, sess, item.ID)
		if err != nil {
			return fmt.Errorf("listing %s: %w", remotePath, err)
		}

		return printManifest(cc, manifest)
	}

	children, err := rs.Meta.ListChildren(ctx, sess.Scope, item.ID)
	if err != nil {
		return fmt.Errorf("listing %s: %w", remotePath, err)
	}

	entries := make([]transfer.ManifestEntry, 0, len(children))
	for i := range children {
		entries = append(entries, entryFromItem(&children[i]))
	}

	return printManifest(cc, entries)
}

func entryFromItem(item *graph.Item) transfer.ManifestEntry {
	return transfer.ManifestEntry{
		ID:       item.ID,
		Name:     item.Name,
		Path:     item.Name,
		Kind:     item.Kind,
		MimeType: item.MimeType,
		WebURL:   item.WebURL,
		Size:     item.Size,
	}
}

func printManifest(cc *CLIContext, entries []transfer.ManifestEntry) error {
	if cc.Flags.JSON {
		out := make([]lsJSONItem, 0, len(entries))
		for _, e := range entries {
			out = append(out, lsJSONItem{
				ID:       e.ID,
				Path:     e.Path,
				Type:     e.Kind.String(),
				MimeType: e.MimeType,
				Size:     e.Size,
				WebURL:   e.WebURL,
			})
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		name, size := e.Path, formatSize(e.Size)
		if e.IsFolder() {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, e.Kind.String(), e.MimeType, size})
	}

	printTable(cc.Out, []string{"NAME", "TYPE", "MIME", "SIZE"}, rows)

	return nil
}

func printDrives(cc *CLIContext, drives []graph.Drive) error {
	if cc.Flags.JSON {
		out := make([]driveJSON, 0, len(drives))
		for _, d := range drives {
			out = append(out, driveJSON{ID: d.ID, Name: d.Name, Type: d.DriveType, WebURL: d.WebURL})
		}

		return printJSON(cc.Out, out)
	}

	rows := make([][]string, 0, len(drives))
	for _, d := range drives {
		rows = append(rows, []string{d.Name, d.DriveType, d.ID})
	}

	printTable(cc.Out, []string{"NAME", "TYPE", "ID"}, rows)

	return nil
}
