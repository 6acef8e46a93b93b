package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/quality"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// MemoryQuality is memory_quality: rate a memory (recording an explicit
// signal the evaluator's hybrid mixer folds in), read back its last
// evaluation, or analyze (list memories within a quality_score range).
func (e *Engine) MemoryQuality(ctx context.Context, req QualityRequest) (QualityResponse, error) {
	switch req.Action {
	case QualityRate:
		return e.qualityRate(ctx, req)
	case QualityGet:
		return e.qualityGet(ctx, req)
	case QualityAnalyze:
		return e.qualityAnalyze(ctx, req)
	default:
		return QualityResponse{}, fmt.Errorf("%w: unknown quality action %q", errs.ErrInvalidArgument, req.Action)
	}
}

func (e *Engine) qualityRate(ctx context.Context, req QualityRequest) (QualityResponse, error) {
	if req.Hash == "" || req.Rating == nil {
		return QualityResponse{}, fmt.Errorf("%w: hash and rating are required to rate a memory", errs.ErrInvalidArgument)
	}
	if *req.Rating < -1 || *req.Rating > 1 {
		return QualityResponse{}, fmt.Errorf("%w: rating must be -1, 0, or 1", errs.ErrInvalidArgument)
	}

	if err := e.signals.RecordSignal(ctx, quality.Signal{
		ContentHash: req.Hash,
		Type:        quality.SignalExplicit,
		Positive:    *req.Rating > 0,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		return QualityResponse{}, err
	}

	partial := map[string]interface{}{store.MetaUserRating: *req.Rating}
	if req.Feedback != "" {
		partial["user_feedback"] = req.Feedback
	}
	if err := e.store.UpdateMetadata(ctx, req.Hash, partial); err != nil {
		return QualityResponse{}, err
	}
	return e.qualityGet(ctx, req)
}

func (e *Engine) qualityGet(ctx context.Context, req QualityRequest) (QualityResponse, error) {
	if req.Hash == "" {
		return QualityResponse{}, fmt.Errorf("%w: hash is required", errs.ErrInvalidArgument)
	}
	m, err := e.store.GetByHash(ctx, req.Hash)
	if err != nil {
		return QualityResponse{}, err
	}
	score, _ := asFloat(m.Metadata[store.MetaQualityScore])
	provider, _ := m.Metadata[store.MetaQualityProvider].(string)
	components, _ := m.Metadata[store.MetaQualityComponents].(map[string]interface{})
	comps := make(map[string]float64, len(components))
	for k, v := range components {
		if f, ok := asFloat(v); ok {
			comps[k] = f
		}
	}
	return QualityResponse{Hash: m.ContentHash, Score: score, Provider: provider, Components: comps}, nil
}

func (e *Engine) qualityAnalyze(ctx context.Context, req QualityRequest) (QualityResponse, error) {
	all, err := e.store.GetAllMemories(ctx, 0, 0)
	if err != nil {
		return QualityResponse{}, err
	}
	matches := make([]MemoryView, 0)
	for _, m := range all {
		score, ok := asFloat(m.Metadata[store.MetaQualityScore])
		if !ok {
			continue
		}
		if req.MinQuality != nil && score < *req.MinQuality {
			continue
		}
		if req.MaxQuality != nil && score > *req.MaxQuality {
			continue
		}
		matches = append(matches, toMemoryView(m))
	}
	return QualityResponse{Matches: matches}, nil
}
