// ABOUTME: Request and response bodies for the finassist HTTP gateway
// ABOUTME: Field names follow the JSON protocol of the orchestrator, ingestion and retrieval services
package gateway

import (
	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/storage"
)

// Response status values for /run
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RunRequest is the body of POST /run
type RunRequest struct {
	Query string `json:"query"`
}

// RunResponse carries the narrative, or the failure reason in the same field
type RunResponse struct {
	Narrative string             `json:"narrative"`
	Status    string             `json:"status"`
	ErrorKind models.FailureKind `json:"error_kind,omitempty"`
}

// IngestRequest is the body of POST /process_and_index. PDFFiles is accepted
// as an alias of Files.
type IngestRequest struct {
	URLs     []string `json:"urls"`
	Files    []string `json:"files"`
	PDFFiles []string `json:"pdf_files"`
}

// AllFiles returns Files followed by PDFFiles
func (r IngestRequest) AllFiles() []string {
	out := make([]string, 0, len(r.Files)+len(r.PDFFiles))
	out = append(out, r.Files...)
	return append(out, r.PDFFiles...)
}

// IngestResponse reports the ingestion outcome
type IngestResponse struct {
	Status string                 `json:"status"`
	Report models.IngestionReport `json:"report"`
}

// RetrieveRequest is the body of POST /retrieve_relevant_content
type RetrieveRequest struct {
	Query string `json:"query"`
}

// AddTextRequest is the body of POST /add_text
type AddTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// AddTextResponse reports how many chunks were added and the new index size
type AddTextResponse struct {
	Added int           `json:"added"`
	Index storage.Stats `json:"index"`
}

// QueryRequest is the body of POST /get_data/
type QueryRequest struct {
	Query string `json:"query"`
}

// DetailResponse is the body of client errors
type DetailResponse struct {
	Detail string `json:"detail"`
}
