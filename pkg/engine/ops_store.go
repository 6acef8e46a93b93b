package engine

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/hashing"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

func toMemoryView(m store.Memory) MemoryView {
	return MemoryView{
		ContentHash: m.ContentHash,
		Content:     m.Content,
		Tags:        m.Tags,
		MemoryType:  m.MemoryType,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAtTime(),
		UpdatedAt:   m.UpdatedAtTime(),
	}
}

// MemoryStore is memory_store: create a new memory, deduplicated by
// content hash (spec.md §3/§8 scenario 1).
func (e *Engine) MemoryStore(ctx context.Context, req StoreRequest) (StoreResult, error) {
	if req.Content == "" {
		return StoreResult{}, fmt.Errorf("%w: content must not be empty", errs.ErrInvalidArgument)
	}
	m := store.Memory{
		Content:    req.Content,
		Tags:       req.Tags,
		MemoryType: req.MemoryType,
		Metadata:   req.Metadata,
	}
	inserted, reason, err := e.store.Store(ctx, m)
	if err != nil {
		return StoreResult{}, err
	}
	hash := hashing.Hash(req.Content, req.Tags)
	return StoreResult{ContentHash: hash, Inserted: inserted, Reason: reason}, nil
}

// MemoryList is memory_list: paged browse, optionally filtered by tag or
// memory_type.
func (e *Engine) MemoryList(ctx context.Context, req ListRequest) (ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	var all []store.Memory
	var err error
	if len(req.Tags) > 0 {
		all, err = e.store.SearchByTag(ctx, req.Tags, store.TagMatchAny)
	} else {
		all, err = e.store.GetAllMemories(ctx, 0, 0)
	}
	if err != nil {
		return ListResponse{}, err
	}

	filtered := all[:0:0]
	for _, m := range all {
		if req.MemoryType != "" && m.MemoryType != req.MemoryType {
			continue
		}
		filtered = append(filtered, m)
	}

	total := len(filtered)
	start := (req.Page - 1) * req.PageSize
	if start > total {
		start = total
	}
	end := start + req.PageSize
	if end > total {
		end = total
	}

	views := make([]MemoryView, 0, end-start)
	for _, m := range filtered[start:end] {
		views = append(views, toMemoryView(m))
	}
	return ListResponse{Memories: views, Page: req.Page, PageSize: req.PageSize, TotalCount: total}, nil
}

// MemoryDelete is memory_delete: delete by hash or by tag/time filter,
// with an optional dry run that previews the match set instead of
// deleting.
func (e *Engine) MemoryDelete(ctx context.Context, req DeleteRequest) (DeleteResponse, error) {
	if req.ContentHash != "" {
		if req.DryRun {
			m, err := e.store.GetByHash(ctx, req.ContentHash)
			if err != nil {
				return DeleteResponse{}, err
			}
			return DeleteResponse{Count: 1, Hashes: []string{m.ContentHash}}, nil
		}
		n, err := e.store.Delete(ctx, req.ContentHash)
		if err != nil {
			return DeleteResponse{}, err
		}
		if n > 0 {
			return DeleteResponse{Count: n, Hashes: []string{req.ContentHash}}, nil
		}
		return DeleteResponse{Count: n}, nil
	}

	match := store.TagMatch(req.TagMatch)
	if match == "" {
		match = store.TagMatchAny
	}
	count, hashes, err := e.store.DeleteByFilters(ctx, store.DeleteFilter{
		Tags:   req.Tags,
		Match:  match,
		After:  req.After,
		Before: req.Before,
		DryRun: req.DryRun,
	})
	if err != nil {
		return DeleteResponse{}, err
	}
	return DeleteResponse{Count: count, Hashes: hashes}, nil
}

// MemoryUpdate is memory_update: mutate tags/memory_type/metadata without
// touching content. Tags are rejected: they are baked into the content
// hash (hashing.Hash(content, tags)), so changing the tag set would
// silently orphan the memory under its original hash rather than mutate
// it in place. memory_type is not hash-affecting and is mutated directly.
func (e *Engine) MemoryUpdate(ctx context.Context, req UpdateRequest) error {
	if req.Hash == "" {
		return fmt.Errorf("%w: hash must not be empty", errs.ErrInvalidArgument)
	}
	if req.Tags != nil {
		existing, err := e.store.GetByHash(ctx, req.Hash)
		if err != nil {
			return err
		}
		if !sameTagSet(existing.Tags, req.Tags) {
			return fmt.Errorf("%w: memory_update cannot change tags, they are part of the content hash; delete and re-store instead", errs.ErrInvalidArgument)
		}
	}
	if req.MemoryType != "" {
		if err := e.store.UpdateMemoryType(ctx, req.Hash, req.MemoryType); err != nil {
			return err
		}
	}
	if len(req.Metadata) > 0 {
		return e.store.UpdateMetadata(ctx, req.Hash, req.Metadata)
	}
	return nil
}

func sameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			return false
		}
	}
	return true
}
