package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/activities"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerIngestActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "CheckDocumentActivity", func(context.Context, activities.CheckDocumentInput) (activities.CheckDocumentOutput, error) {
		return activities.CheckDocumentOutput{}, nil
	})
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "ChunkTextActivity", func(context.Context, activities.ChunkTextInput) (activities.ChunkTextOutput, error) {
		return activities.ChunkTextOutput{}, nil
	})
	registerActivityName(env, "EmbedChunksActivity", func(context.Context, activities.EmbedChunksInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "IndexChunksActivity", func(context.Context, activities.IndexChunksInput) (activities.IndexChunksOutput, error) {
		return activities.IndexChunksOutput{}, nil
	})
	registerActivityName(env, "RecordDocumentActivity", func(context.Context, activities.RecordDocumentInput) error { return nil })
}

func TestDocumentIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("CheckDocumentActivity", mock.Anything, activities.CheckDocumentInput{Filename: "notes.pdf"}).Return(activities.CheckDocumentOutput{AlreadyProcessed: false}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{Path: "/tmp/notes.pdf"}).Return(activities.ExtractTextOutput{Text: "lecture one covers sets"}, nil)
	env.OnActivity("ChunkTextActivity", mock.Anything, mock.Anything).Return(activities.ChunkTextOutput{Chunks: []string{"lecture one covers sets"}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.1, 0.2}}, ProviderName: "mock", Model: "mock"}, nil)
	env.OnActivity("IndexChunksActivity", mock.Anything, mock.Anything).Return(activities.IndexChunksOutput{IndexedCount: 1}, nil)
	env.OnActivity("RecordDocumentActivity", mock.Anything, activities.RecordDocumentInput{Filename: "notes.pdf"}).Return(nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{Path: "/tmp/notes.pdf", Filename: "notes.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusProcessed, out)
}

func TestDocumentIngestWorkflowDuplicateShortCircuits(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("CheckDocumentActivity", mock.Anything, mock.Anything).Return(activities.CheckDocumentOutput{AlreadyProcessed: true}, nil)

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{Path: "/tmp/notes.pdf", Filename: "notes.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusDuplicate, out)
	env.AssertNotCalled(t, "ExtractTextActivity", mock.Anything, mock.Anything)
}

func TestDocumentIngestWorkflowNoTextFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("CheckDocumentActivity", mock.Anything, mock.Anything).Return(activities.CheckDocumentOutput{}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{}, errors.New("no extractable text found in PDF"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{Path: "/tmp/scan.pdf", Filename: "scan.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusFailed, out)
	env.AssertNotCalled(t, "IndexChunksActivity", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "RecordDocumentActivity", mock.Anything, mock.Anything)
}

func TestDocumentIngestWorkflowLedgerRaceReportsDuplicate(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerIngestActivities(env)

	env.OnActivity("CheckDocumentActivity", mock.Anything, mock.Anything).Return(activities.CheckDocumentOutput{}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{Text: "text"}, nil)
	env.OnActivity("ChunkTextActivity", mock.Anything, mock.Anything).Return(activities.ChunkTextOutput{Chunks: []string{"text"}}, nil)
	env.OnActivity("EmbedChunksActivity", mock.Anything, mock.Anything).Return(activities.EmbedChunksOutput{Vectors: [][]float32{{0.3}}}, nil)
	env.OnActivity("IndexChunksActivity", mock.Anything, mock.Anything).Return(activities.IndexChunksOutput{IndexedCount: 1}, nil)
	env.OnActivity("RecordDocumentActivity", mock.Anything, mock.Anything).Return(errors.New("document already ingested: notes.pdf"))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{Path: "/tmp/notes.pdf", Filename: "notes.pdf"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusDuplicate, out)
}
