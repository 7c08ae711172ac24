// ABOUTME: IngestionReport summarizes one ingestion batch
// ABOUTME: Records per-source success or failure without aborting the batch
package models

// SourceKind distinguishes URLs from local files
type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceFile SourceKind = "file"
)

// Status strings reported to ingestion callers
const (
	StatusIndexed   = "indexing completed"
	StatusPartial   = "indexing completed with errors"
	StatusNoData    = "no data indexed"
	StatusIndexFail = "indexing failed"
)

// SourceResult is the outcome of loading one source
type SourceResult struct {
	Source   string     `json:"source"`
	Kind     SourceKind `json:"kind"`
	Segments int        `json:"segments"`
	Error    string     `json:"error,omitempty"`
}

// IngestionReport is returned by every ingestion call
type IngestionReport struct {
	Status  string         `json:"status"`
	Indexed bool           `json:"indexed"`
	Chunks  int            `json:"chunks"`
	Sources []SourceResult `json:"sources"`
	Error   string         `json:"error,omitempty"`
}

// Failed returns the sources that could not be loaded
func (r IngestionReport) Failed() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if s.Error != "" {
			out = append(out, s)
		}
	}
	return out
}
