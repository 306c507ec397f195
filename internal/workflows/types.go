package workflows

// DocumentIngestInput starts one document through the ingest pipeline.
// Path is where the API saved the upload; Filename is the ledger key.
type DocumentIngestInput struct {
	Path         string `json:"path"`
	Filename     string `json:"filename"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

// IngestStatus is the queryable progress snapshot for one ingest run.
type IngestStatus struct {
	Filename    string            `json:"filename"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	ChunkCount  int               `json:"chunk_count"`
	Provider    string            `json:"provider,omitempty"`
	Steps       map[string]string `json:"steps"`
}

const (
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusDuplicate  = "duplicate"
	StatusFailed     = "failed"
)
