package activities

type CheckDocumentInput struct {
	Filename string `json:"filename"`
}

type CheckDocumentOutput struct {
	AlreadyProcessed bool `json:"already_processed"`
}

type ExtractTextInput struct {
	Path string `json:"path"`
}

type ExtractTextOutput struct {
	Text string `json:"text"`
}

type ChunkTextInput struct {
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type ChunkTextOutput struct {
	Chunks []string `json:"chunks"`
}

type EmbedChunksInput struct {
	Chunks        []string `json:"chunks"`
	ProviderIndex int      `json:"provider_index"`
	Operation     string   `json:"operation"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
	Model        string      `json:"model"`
}

type IndexChunksInput struct {
	Filename string      `json:"filename"`
	Chunks   []string    `json:"chunks"`
	Vectors  [][]float32 `json:"vectors"`
}

type IndexChunksOutput struct {
	IndexedCount int `json:"indexed_count"`
}

type RecordDocumentInput struct {
	Filename string `json:"filename"`
}
