package activities

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/config"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/index"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/providers"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/storage"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

type Activities struct {
	cfg       config.Config
	docRepo   *storage.DocumentRepo
	providers *providers.Manager
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:       cfg,
		docRepo:   storage.NewDocumentRepo(db),
		providers: pm,
	}, nil
}

// CheckDocumentActivity consults the ingestion ledger so the workflow can
// short-circuit re-uploads of a file it already indexed.
func (a *Activities) CheckDocumentActivity(ctx context.Context, in CheckDocumentInput) (CheckDocumentOutput, error) {
	processed, err := a.docRepo.IsProcessed(ctx, in.Filename)
	if err != nil {
		return CheckDocumentOutput{}, err
	}
	return CheckDocumentOutput{AlreadyProcessed: processed}, nil
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	f, r, err := pdf.Open(in.Path)
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return ExtractTextOutput{}, fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return ExtractTextOutput{}, fmt.Errorf("read extracted text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	text = util.SanitizeText(text)
	if text == "" {
		return ExtractTextOutput{}, util.ErrNoExtractableText
	}
	return ExtractTextOutput{Text: text}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.ChunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.cfg.ChunkOverlap
	}
	chunks := util.ChunkText(in.Text, in.ChunkSize, in.ChunkOverlap)
	if len(chunks) == 0 {
		return ChunkTextOutput{}, util.ErrNoExtractableText
	}
	return ChunkTextOutput{Chunks: chunks}, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	provider, _ := a.providers.EmbedProviderByIndex(in.ProviderIndex)
	vectors, info, err := provider.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Inputs:    in.Chunks,
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	if len(vectors) != len(in.Chunks) {
		return EmbedChunksOutput{}, fmt.Errorf("embed returned %d vectors for %d chunks", len(vectors), len(in.Chunks))
	}
	return EmbedChunksOutput{
		Vectors:      vectors,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

// IndexChunksActivity appends the document's vectors to the on-disk index.
// The per-path lock serializes writers; readers keep seeing the old file
// until the rename lands.
func (a *Activities) IndexChunksActivity(ctx context.Context, in IndexChunksInput) (IndexChunksOutput, error) {
	_ = ctx
	if len(in.Chunks) != len(in.Vectors) {
		return IndexChunksOutput{}, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(in.Chunks), len(in.Vectors))
	}

	lock := index.PathLock(a.cfg.IndexPath)
	lock.Lock()
	defer lock.Unlock()

	ix, err := index.OpenOrCreate(a.cfg.IndexPath)
	if err != nil {
		return IndexChunksOutput{}, err
	}
	entries := make([]index.Entry, len(in.Chunks))
	for i, c := range in.Chunks {
		entries[i] = index.Entry{Text: c, Source: in.Filename}
	}
	if err := ix.Insert(entries, in.Vectors); err != nil {
		return IndexChunksOutput{}, err
	}
	if err := ix.Persist(a.cfg.IndexPath); err != nil {
		return IndexChunksOutput{}, err
	}
	return IndexChunksOutput{IndexedCount: len(entries)}, nil
}

// RecordDocumentActivity runs after indexing succeeded. The ledger's unique
// constraint turns a concurrent double ingest into util.ErrDuplicateDocument.
func (a *Activities) RecordDocumentActivity(ctx context.Context, in RecordDocumentInput) error {
	return a.docRepo.RecordProcessed(ctx, in.Filename)
}
