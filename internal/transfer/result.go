package transfer

// Result is the terminal outcome of one file's upload or download.
type Result struct {
	// Path is the remote path for uploads and the manifest-relative path for
	// downloads.
	Path             string
	Success          bool
	BytesTransferred int64

	// FailureDetail is the service's response body, "cancelled", or the
	// local error text. Empty on success.
	FailureDetail string

	// Err wraps one of the package's error kinds. Nil on success.
	Err error
}

func succeeded(path string, n int64) Result {
	return Result{Path: path, Success: true, BytesTransferred: n}
}

// failed builds a failed Result of the given kind.
func failed(path string, kind, cause error, transferred int64) Result {
	return Result{
		Path:             path,
		BytesTransferred: transferred,
		FailureDetail:    failureDetail(cause),
		Err:              classify(kind, cause),
	}
}

// Progress is one observation of an upload in flight, emitted after every
// accepted chunk.
type Progress struct {
	Path        string
	Transferred int64
	Total       int64
}

// String renders the observation as "Uploaded 31.25 MB/150.0 MB".
func (p Progress) String() string {
	return "Uploaded " + mustFormatSize(p.Transferred) + "/" + mustFormatSize(p.Total)
}

// ProgressFunc receives progress observations. It is called synchronously
// from the upload loop.
type ProgressFunc func(Progress)
