package rag

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/index"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/providers"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/util"
)

// EnsureSeeded creates the index file with a single placeholder entry when
// none exists yet. The placeholder keeps search well-defined on a brand-new
// deployment before the first document lands; its score is so low for real
// questions that it never displaces actual material.
func EnsureSeeded(ctx context.Context, store *index.Store, mgr *providers.Manager, dim int) error {
	if store.Exists() {
		return nil
	}
	if err := util.EnsureDir(filepath.Dir(store.Path())); err != nil {
		return err
	}

	lock := index.PathLock(store.Path())
	lock.Lock()
	defer lock.Unlock()
	if store.Exists() {
		return nil
	}

	vecs, _, err := mgr.FirstEmbedProvider().Embed(ctx, providers.EmbedRequest{
		Operation: "seed",
		Inputs:    []string{"initialization"},
		Dimension: dim,
	})
	if err != nil {
		return fmt.Errorf("seed index: %w", err)
	}
	ix, err := index.OpenOrCreate(store.Path())
	if err != nil {
		return err
	}
	if err := ix.Insert([]index.Entry{{Text: "initialization", Source: "dummy"}}, vecs); err != nil {
		return err
	}
	if err := ix.Persist(store.Path()); err != nil {
		return err
	}
	store.Invalidate()
	return nil
}
