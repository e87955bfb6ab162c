package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// DefaultMaxDepth bounds folder nesting below the walk root.
const DefaultMaxDepth = 64

// ManifestEntry is one folder or file found by a Walk.
type ManifestEntry struct {
	ID   string
	Name string
	// Path is slash-separated and relative to the walk root.
	Path     string
	Kind     graph.ItemKind
	MimeType string // files only
	WebURL   string
	Size     int64
	// QuickXorHash is the service's content digest, files only. May be empty.
	QuickXorHash string
	// Depth is 0 for direct children of the walk root.
	Depth int
}

// IsFolder reports whether the entry is a folder.
func (e ManifestEntry) IsFolder() bool { return e.Kind == graph.KindFolder }

// Walker enumerates a remote folder tree.
type Walker struct {
	maxDepth int
	logger   *slog.Logger
}

// NewWalker creates a Walker. A non-positive maxDepth selects DefaultMaxDepth.
func NewWalker(maxDepth int, logger *slog.Logger) *Walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Walker{maxDepth: maxDepth, logger: logger}
}

// Walk lists folderID recursively and returns its descendants in pre-order:
// each folder precedes its own children, and siblings keep the service's
// listing order. Items that are neither folder nor file are skipped. A tree
// nested deeper than the walker's limit fails with ErrHierarchyTooDeep.
func (w *Walker) Walk(ctx context.Context, sess Session, folderID string) ([]ManifestEntry, error) {
	var manifest []ManifestEntry

	if err := w.walk(ctx, sess, folderID, "", 0, &manifest); err != nil {
		return nil, err
	}

	w.logger.Debug("walk complete",
		slog.String("folder_id", folderID),
		slog.Int("entries", len(manifest)),
	)

	return manifest, nil
}

func (w *Walker) walk(
	ctx context.Context, sess Session, folderID, prefix string, depth int, out *[]ManifestEntry,
) error {
	if depth >= w.maxDepth {
		return fmt.Errorf("transfer: %q is nested more than %d levels: %w", prefix, w.maxDepth, ErrHierarchyTooDeep)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transfer: walk %q: %w: %w", prefix, ErrCancelled, err)
	}

	children, err := sess.Remote.ListChildren(ctx, sess.Scope, folderID)
	if err != nil {
		if isCancellation(err) {
			return fmt.Errorf("transfer: listing %q: %w: %w", prefix, ErrCancelled, err)
		}

		return fmt.Errorf("transfer: listing %q: %w", prefix, err)
	}

	for i := range children {
		item := &children[i]

		name := norm.NFC.String(item.Name)
		if !validEntryName(name) {
			w.logger.Warn("skipping item with unusable name",
				slog.String("item_id", item.ID),
				slog.String("name", item.Name),
			)

			continue
		}

		if item.Kind == graph.KindUnknown {
			w.logger.Debug("skipping item that is neither folder nor file",
				slog.String("item_id", item.ID),
				slog.String("name", name),
			)

			continue
		}

		entry := ManifestEntry{
			ID:     item.ID,
			Name:   name,
			Path:   joinManifestPath(prefix, name),
			Kind:   item.Kind,
			WebURL: item.WebURL,
			Size:   item.Size,
			Depth:  depth,
		}

		if item.IsFile() {
			entry.MimeType = item.MimeType
			entry.QuickXorHash = item.QuickXorHash
		}

		*out = append(*out, entry)

		if item.IsFolder() {
			if err := w.walk(ctx, sess, item.ID, entry.Path, depth+1, out); err != nil {
				return err
			}
		}
	}

	return nil
}

func joinManifestPath(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

// validEntryName rejects names that would escape the local download root.
func validEntryName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
