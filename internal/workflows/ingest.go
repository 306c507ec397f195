package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/activities"
)

const QueryGetIngestStatus = "GetIngestStatus"

// DocumentIngestWorkflow runs one uploaded PDF through extract, chunk,
// embed, index and ledger recording. Duplicates and empty PDFs end the
// workflow with a terminal status instead of an error so the caller can
// show the outcome without unwrapping failures.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (string, error) {
	status := IngestStatus{
		Filename:    input.Filename,
		CurrentStep: "init",
		Status:      StatusProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestStatus, func() (IngestStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	status.CurrentStep = "check_duplicate"
	status.Steps[status.CurrentStep] = "processing"
	var checkOut activities.CheckDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "CheckDocumentActivity", activities.CheckDocumentInput{Filename: input.Filename}).Get(ctx, &checkOut); err != nil {
		return "", err
	}
	if checkOut.AlreadyProcessed {
		status.Steps[status.CurrentStep] = "done"
		status.CurrentStep = "done"
		status.Status = StatusDuplicate
		return status.Status, nil
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{Path: input.Path}).Get(ctx, &textOut); err != nil {
		if isNoTextError(err) {
			status.Status = StatusFailed
			status.FailReason = "no extractable text found (scanned PDF without OCR)"
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_text"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{Text: textOut.Text, ChunkSize: input.ChunkSize, ChunkOverlap: input.ChunkOverlap}).Get(ctx, &chunkOut); err != nil {
		if isNoTextError(err) {
			status.Status = StatusFailed
			status.FailReason = "document produced no chunks"
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.ChunkCount = len(chunkOut.Chunks)
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{
		Operation: "embed",
		Chunks:    chunkOut.Chunks,
	}).Get(ctx, &embedOut); err != nil {
		return "", err
	}
	status.Provider = embedOut.ProviderName
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "index_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var indexOut activities.IndexChunksOutput
	if err := workflow.ExecuteActivity(ctx, "IndexChunksActivity", activities.IndexChunksInput{
		Filename: input.Filename,
		Chunks:   chunkOut.Chunks,
		Vectors:  embedOut.Vectors,
	}).Get(ctx, &indexOut); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	// Ledger write comes last so a crash mid-pipeline never records a
	// document whose chunks are not searchable. A concurrent ingest of the
	// same filename loses here and reports duplicate.
	status.CurrentStep = "record_document"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "RecordDocumentActivity", activities.RecordDocumentInput{Filename: input.Filename}).Get(ctx, nil); err != nil {
		if isDuplicateError(err) {
			status.Steps[status.CurrentStep] = "done"
			status.CurrentStep = "done"
			status.Status = StatusDuplicate
			return status.Status, nil
		}
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "done"
	status.Status = StatusProcessed
	return status.Status, nil
}

// Temporal flattens activity errors into application failures, so sentinel
// matching happens on the message text.
func isNoTextError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no extractable text")
}

func isDuplicateError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already ingested")
}
