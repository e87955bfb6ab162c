package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharepoint-go/internal/graph"
	"github.com/tonimelisma/sharepoint-go/pkg/quickxorhash"
)

const (
	fakeSiteID  = "site-1"
	drivePrefix = "/sites/" + fakeSiteID + "/drive"
)

type fakeItem struct {
	id     string
	name   string
	kind   graph.ItemKind
	mime   string
	parent string
}

type fakeUpload struct {
	path  string
	total int64
	data  []byte
	gone  bool
}

// fakeDrive is an in-memory Graph document library served over httptest.
// It understands the handful of endpoints the transfer engine uses.
type fakeDrive struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	items    map[string]*fakeItem
	children map[string][]string
	content  map[string][]byte
	files    map[string][]byte
	uploads  map[string]*fakeUpload

	// knobs
	pageSize       int
	fetchStatus    map[string]int
	reportedHash   map[string]string // overrides the listed quickXorHash; "" omits it
	failChunk      int
	noUploadURL    bool
	smallPutStatus int
	onFetch        func(ctx context.Context, id string)
	queryStatus    int
	onQuery        func(ctx context.Context)

	// observations
	chunkRanges    []string
	chunkAuth      []string
	sessionCreates int
	smallPuts      int
	fetches        int
	listings       int
	queries        int
}

func newFakeDrive(t *testing.T) *fakeDrive {
	t.Helper()

	d := &fakeDrive{
		t:            t,
		items:        map[string]*fakeItem{},
		children:     map[string][]string{},
		content:      map[string][]byte{},
		files:        map[string][]byte{},
		uploads:      map[string]*fakeUpload{},
		fetchStatus:  map[string]int{},
		reportedHash: map[string]string{},
	}

	d.srv = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.srv.Close)

	return d
}

// session returns a transfer Session talking to the fake drive through a
// real graph.Client.
func (d *fakeDrive) session() Session {
	client := graph.NewClient(d.srv.URL, d.srv.Client(), graph.StaticToken("tok"), slog.Default(), "test-agent")
	return NewSession(graph.DriveScope{SiteID: fakeSiteID}, client)
}

func (d *fakeDrive) addFolder(parent, id, name string) {
	d.add(&fakeItem{id: id, name: name, kind: graph.KindFolder, parent: parent})
}

func (d *fakeDrive) addFile(parent, id, name, body string) {
	d.add(&fakeItem{id: id, name: name, kind: graph.KindFile, mime: "text/plain", parent: parent})
	d.content[id] = []byte(body)
}

func (d *fakeDrive) addUnknown(parent, id, name string) {
	d.add(&fakeItem{id: id, name: name, kind: graph.KindUnknown, parent: parent})
}

func (d *fakeDrive) add(it *fakeItem) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items[it.id] = it
	d.children[it.parent] = append(d.children[it.parent], it.id)
}

func (d *fakeDrive) file(remotePath string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.files[remotePath]

	return b, ok
}

func (d *fakeDrive) serve(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path

	switch {
	case strings.HasPrefix(p, "/upload/"):
		d.serveUpload(w, r, strings.TrimPrefix(p, "/upload/"))
	case p == drivePrefix+"/root/children":
		d.serveChildren(w, r, graph.RootID)
	case strings.HasPrefix(p, drivePrefix+"/items/") && strings.HasSuffix(p, "/children"):
		d.serveChildren(w, r, strings.TrimSuffix(strings.TrimPrefix(p, drivePrefix+"/items/"), "/children"))
	case strings.HasPrefix(p, drivePrefix+"/items/") && strings.HasSuffix(p, "/content"):
		d.serveContent(w, r, strings.TrimSuffix(strings.TrimPrefix(p, drivePrefix+"/items/"), "/content"))
	case strings.HasPrefix(p, drivePrefix+"/root:/"):
		d.servePathAddressed(w, r, strings.TrimPrefix(p, drivePrefix+"/root:"))
	default:
		http.NotFound(w, r)
	}
}

func (d *fakeDrive) serveChildren(w http.ResponseWriter, r *http.Request, folderID string) {
	d.mu.Lock()
	d.listings++

	if _, ok := d.items[folderID]; !ok && folderID != graph.RootID {
		d.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "itemNotFound"}})

		return
	}

	ids := d.children[folderID]

	values := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, d.itemJSON(d.items[id]))
	}
	d.mu.Unlock()

	page := 0
	if s := r.URL.Query().Get("page"); s != "" {
		page, _ = strconv.Atoi(s)
	}

	resp := map[string]any{}

	if d.pageSize > 0 {
		start := min(page*d.pageSize, len(values))
		end := min(start+d.pageSize, len(values))
		resp["value"] = values[start:end]

		if end < len(values) {
			resp["@odata.nextLink"] = fmt.Sprintf("%s%s?page=%d", d.srv.URL, r.URL.Path, page+1)
		}
	} else if len(values) > 0 {
		resp["value"] = values
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *fakeDrive) itemJSON(it *fakeItem) map[string]any {
	m := map[string]any{"id": it.id, "name": it.name, "webUrl": "https://contoso/" + it.id}

	switch it.kind {
	case graph.KindFolder:
		m["folder"] = map[string]any{"childCount": len(d.children[it.id])}
	case graph.KindFile:
		file := map[string]any{"mimeType": it.mime}

		hash, overridden := d.reportedHash[it.id]
		if !overridden {
			hash = quickxorhash.Sum64(d.content[it.id])
		}

		if hash != "" {
			file["hashes"] = map[string]any{"quickXorHash": hash}
		}

		m["file"] = file
		m["size"] = len(d.content[it.id])
	case graph.KindUnknown:
		m["package"] = map[string]any{"type": "oneNote"}
	}

	return m
}

func (d *fakeDrive) serveContent(w http.ResponseWriter, r *http.Request, id string) {
	d.mu.Lock()
	d.fetches++
	status, failing := d.fetchStatus[id]
	body, ok := d.content[id]
	hook := d.onFetch
	d.mu.Unlock()

	if hook != nil {
		hook(r.Context(), id)
	}

	if failing {
		writeJSON(w, status, map[string]any{"error": map[string]any{"code": "fetchFailed", "item": id}})
		return
	}

	if !ok {
		http.NotFound(w, r)
		return
	}

	_, _ = w.Write(body)
}

func (d *fakeDrive) servePathAddressed(w http.ResponseWriter, r *http.Request, rest string) {
	path, action, _ := strings.Cut(strings.TrimPrefix(rest, "/"), ":")
	path = "/" + path

	switch action {
	case "/content":
		d.serveSmallPut(w, r, path)
	case "/createUploadSession":
		d.serveCreateSession(w, r, path)
	case "":
		d.serveItemByPath(w, path)
	default:
		http.NotFound(w, r)
	}
}

func (d *fakeDrive) serveItemByPath(w http.ResponseWriter, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, it := range d.items {
		if d.pathOf(it) == path {
			writeJSON(w, http.StatusOK, d.itemJSON(it))
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "itemNotFound"}})
}

func (d *fakeDrive) pathOf(it *fakeItem) string {
	if it.parent == graph.RootID {
		return "/" + it.name
	}

	return d.pathOf(d.items[it.parent]) + "/" + it.name
}

func (d *fakeDrive) serveSmallPut(w http.ResponseWriter, r *http.Request, path string) {
	body, err := io.ReadAll(r.Body)
	require.NoError(d.t, err)

	d.mu.Lock()
	d.smallPuts++
	status := d.smallPutStatus
	d.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]any{"error": map[string]any{"code": "uploadRejected"}})
		return
	}

	d.mu.Lock()
	d.files[path] = body
	d.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": "put-" + path, "name": path, "size": len(body), "file": map[string]any{}})
}

func (d *fakeDrive) serveCreateSession(w http.ResponseWriter, _ *http.Request, path string) {
	d.mu.Lock()
	d.sessionCreates++
	id := strconv.Itoa(d.sessionCreates)
	d.uploads[id] = &fakeUpload{path: path}
	noURL := d.noUploadURL
	d.mu.Unlock()

	resp := map[string]any{"expirationDateTime": time.Now().Add(time.Hour).UTC().Format(time.RFC3339)}
	if !noURL {
		resp["uploadUrl"] = d.srv.URL + "/upload/" + id
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *fakeDrive) serveUpload(w http.ResponseWriter, r *http.Request, id string) {
	d.mu.Lock()
	up, ok := d.uploads[id]
	d.mu.Unlock()

	if !ok || up.gone {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "itemNotFound"}})
		return
	}

	if r.Method == http.MethodGet {
		d.mu.Lock()
		next := len(up.data)
		status, hook := d.queryStatus, d.onQuery
		d.queries++
		d.mu.Unlock()

		if hook != nil {
			hook(r.Context())
		}

		if status != 0 {
			writeJSON(w, status, map[string]any{"error": map[string]any{"code": "serviceNotAvailable"}})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"nextExpectedRanges": []string{fmt.Sprintf("%d-", next)}})

		return
	}

	body, err := io.ReadAll(r.Body)
	require.NoError(d.t, err)

	cr := r.Header.Get("Content-Range")

	d.mu.Lock()
	defer d.mu.Unlock()

	d.chunkRanges = append(d.chunkRanges, cr)
	d.chunkAuth = append(d.chunkAuth, r.Header.Get("Authorization"))

	if d.failChunk == len(d.chunkRanges) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": "generalException"}})
		return
	}

	var start, end, total int64
	if _, err := fmt.Sscanf(cr, "bytes %d-%d/%d", &start, &end, &total); err != nil ||
		start != int64(len(up.data)) || end-start+1 != int64(len(body)) {
		writeJSON(w, http.StatusRequestedRangeNotSatisfiable, map[string]any{"error": map[string]any{"code": "invalidRange"}})
		return
	}

	up.total = total
	up.data = append(up.data, body...)

	if int64(len(up.data)) == total {
		d.files[up.path] = up.data
		writeJSON(w, http.StatusCreated, map[string]any{"id": "big-" + up.path, "size": total, "file": map[string]any{}})

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"nextExpectedRanges": []string{fmt.Sprintf("%d-", len(up.data))}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
