package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/config"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/index"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/providers"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

// Orchestrator runs the question pipeline: embed the query, retrieve the
// nearest chunks, build a grounded prompt and stream the generated answer.
type Orchestrator struct {
	store       *index.Store
	manager     *providers.Manager
	topK        int
	embedDim    int
	temperature float64
}

// NewOrchestrator fails fast when no knowledge base exists yet, so the
// caller can tell users to upload documents instead of answering from
// nothing.
func NewOrchestrator(store *index.Store, mgr *providers.Manager, cfg config.Config) (*Orchestrator, error) {
	if !store.Exists() {
		return nil, fmt.Errorf("no knowledge base at %s, upload documents first", store.Path())
	}
	if mgr.LLMCount() == 0 || mgr.EmbedCount() == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	topK := cfg.RetrievalTopK
	if topK <= 0 {
		topK = 3
	}
	return &Orchestrator{
		store:       store,
		manager:     mgr,
		topK:        topK,
		embedDim:    cfg.EmbedDim,
		temperature: cfg.Temperature,
	}, nil
}

// Answer starts the pipeline and returns the stream immediately. Retrieval
// and generation run in the background; consume Fragments to drive it.
func (o *Orchestrator) Answer(ctx context.Context, query string) (*Stream, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	s := newStream()
	go o.run(ctx, query, s)
	return s, nil
}

func (o *Orchestrator) run(ctx context.Context, query string, s *Stream) {
	s.setState(StateEmbedding)
	vec, err := o.embedQuery(ctx, query)
	if err != nil {
		s.fail(fmt.Errorf("embed query: %w", err))
		return
	}

	s.setState(StateRetrieving)
	snap, err := o.store.Snapshot()
	if err != nil {
		s.fail(fmt.Errorf("load index: %w", err))
		return
	}
	chunks := toChunks(snap.Search(vec, o.topK))
	s.setSources(chunks)

	// An empty retrieval still answers; the prompt tells the model the
	// context had nothing relevant.
	s.setState(StatePrompting)
	prompt := BuildPrompt(query, chunks)

	s.setState(StateGenerating)
	info, err := o.generate(ctx, prompt, s)
	if err != nil {
		s.fail(err)
		return
	}
	s.complete(info)
}

// embedQuery walks the configured embedding providers in preference order
// until one succeeds.
func (o *Orchestrator) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var lastErr error
	for _, i := range o.manager.PreferredEmbedOrder() {
		p, ref := o.manager.EmbedProviderByIndex(i)
		vecs, _, err := p.Embed(ctx, providers.EmbedRequest{Operation: "query", Inputs: []string{query}, Dimension: o.embedDim})
		if err != nil {
			lastErr = err
			log.Printf("embed provider %s failed: %v", ref.Name, err)
			continue
		}
		if len(vecs) != 1 {
			lastErr = fmt.Errorf("provider %s returned %d vectors for one input", ref.Name, len(vecs))
			continue
		}
		return vecs[0], nil
	}
	return nil, providerErr(lastErr)
}

// generate streams the answer. Failover only happens before the first
// fragment reaches the client; once text has been emitted a provider error
// fails the stream rather than restarting with another backend.
func (o *Orchestrator) generate(ctx context.Context, prompt string, s *Stream) (providers.ProviderInfo, error) {
	req := providers.GenerateRequest{
		Operation:   "answer",
		Prompt:      prompt,
		Temperature: o.temperature,
	}
	emitted := false
	emit := func(fragment string) error {
		select {
		case s.fragments <- fragment:
			emitted = true
			s.appendText(fragment)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var lastErr error
	for _, i := range o.manager.PreferredLLMOrder() {
		p, ref := o.manager.LLMProviderByIndex(i)
		_, info, err := p.GenerateStream(ctx, req, emit)
		if err == nil {
			return info, nil
		}
		if emitted || ctx.Err() != nil {
			return info, err
		}
		lastErr = err
		log.Printf("llm provider %s failed: %v", ref.Name, err)
	}
	return providers.ProviderInfo{}, providerErr(lastErr)
}

// providerErr folds a raw backend error into the sentinel the caller acts
// on: auth failures need a key fix, everything else a retry.
func providerErr(err error) error {
	if err == nil {
		return util.ErrProviderUnavailable
	}
	if providers.ClassifyError(err) == providers.ErrorAuth {
		return fmt.Errorf("%w: %v", util.ErrProviderAuth, err)
	}
	return fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
}

func toChunks(results []index.Result) []models.RetrievedChunk {
	out := make([]models.RetrievedChunk, 0, len(results))
	for _, r := range results {
		out = append(out, models.RetrievedChunk{Text: r.Text, Source: r.Source, Score: r.Score})
	}
	return out
}
