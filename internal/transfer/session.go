package transfer

import (
	"context"
	"io"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
)

// Remote is the slice of the Graph API the transfer engine drives.
// Satisfied by *graph.Client.
type Remote interface {
	PutSmallFile(ctx context.Context, scope graph.DriveScope, remotePath string, r io.Reader, size int64) (*graph.Item, error)
	CreateUploadSession(ctx context.Context, scope graph.DriveScope, remotePath string) (*graph.UploadSession, error)
	UploadChunk(ctx context.Context, session *graph.UploadSession, chunk io.Reader, offset, length, total int64) (*graph.Item, error)
	QueryUploadSession(ctx context.Context, session *graph.UploadSession) (*graph.UploadSessionStatus, error)
	ListChildren(ctx context.Context, scope graph.DriveScope, folderID string) ([]graph.Item, error)
	DownloadContent(ctx context.Context, scope graph.DriveScope, itemID string, w io.Writer) (int64, error)
}

var _ Remote = (*graph.Client)(nil)

// Session is the immutable context of one invocation: which drive to talk to
// and the authenticated API surface to talk to it with. It is passed by
// value into every operation.
type Session struct {
	Scope  graph.DriveScope
	Remote Remote
}

// NewSession binds a drive scope to an authenticated client.
func NewSession(scope graph.DriveScope, remote Remote) Session {
	return Session{Scope: scope, Remote: remote}
}
