package graph

import "time"

// ItemKind discriminates the drive item variants. The Graph API marks a
// folder with a "folder" facet and a file with a "file" facet; an item
// carrying neither (OneNote packages, deleted stubs) is KindUnknown.
type ItemKind int

const (
	KindUnknown ItemKind = iota
	KindFolder
	KindFile
)

func (k ItemKind) String() string {
	switch k {
	case KindFolder:
		return "Folder"
	case KindFile:
		return "File"
	default:
		return "Unknown"
	}
}

// Item represents a drive item (folder or file).
// Fields are normalized from the Graph API response; callers never see raw API data.
type Item struct {
	ID         string
	Name       string
	Kind       ItemKind
	Size       int64
	MimeType   string // files only; empty when the service omits it
	WebURL     string // empty when the service omits it
	ChildCount int    // folders only
	ModifiedAt time.Time

	// QuickXorHash is the base64 content digest from file.hashes. Empty when
	// the service omits it.
	QuickXorHash string
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool { return i.Kind == KindFolder }

// IsFile reports whether the item is a file.
func (i *Item) IsFile() bool { return i.Kind == KindFile }

// Drive is a document library within a site.
type Drive struct {
	ID        string
	Name      string
	DriveType string
	WebURL    string
}

// Site is a resolved SharePoint site.
type Site struct {
	ID          string
	Name        string
	DisplayName string
	WebURL      string
}

// UploadSession is the remote side of a resumable upload: a pre-authorized
// URL that accepts sequential byte-range PUTs until it expires.
type UploadSession struct {
	UploadURL      string
	ExpirationTime time.Time
}

// UploadSessionStatus is the result of querying an upload session. The
// ranges use the Graph "start-end" / "start-" notation.
type UploadSessionStatus struct {
	UploadURL          string
	ExpirationTime     time.Time
	NextExpectedRanges []string
}
