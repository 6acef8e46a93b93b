package engine

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"go.uber.org/zap"
)

// LegacyCall is a pre-unification operation name plus its raw arguments,
// as an older client would have sent them.
type LegacyCall struct {
	Name string
	Args map[string]interface{}
}

// CallLegacy routes a legacy operation name to one of the twelve unified
// operations, translating its arguments with a pure transformation and
// logging a deprecation warning. Unknown names return an
// errs.ErrInvalidArgument error naming the unrecognized operation.
func (e *Engine) CallLegacy(ctx context.Context, call LegacyCall) (interface{}, error) {
	e.logger.Warn(ctx, "legacy operation name used, route to its replacement",
		zap.String("legacy_name", call.Name))

	switch call.Name {
	case "store_memory", "remember", "record_memory":
		return e.MemoryStore(ctx, StoreRequest{
			Content:    str(call.Args["content"]),
			Tags:       strSlice(call.Args["tags"]),
			MemoryType: str(call.Args["memory_type"]),
			Metadata:   mapArg(call.Args["metadata"]),
		})
	case "retrieve_memory", "search", "recall":
		return e.MemorySearch(ctx, SearchRequest{
			Query:    str(call.Args["query"]),
			Mode:     SearchMode(str(call.Args["mode"])),
			TimeExpr: str(call.Args["time_expr"]),
			Tags:     strSlice(call.Args["tags"]),
			Limit:    intArg(call.Args["limit"], 10),
		})
	case "list_memories":
		return e.MemoryList(ctx, ListRequest{
			Page:       intArg(call.Args["page"], 1),
			PageSize:   intArg(call.Args["page_size"], 20),
			Tags:       strSlice(call.Args["tags"]),
			MemoryType: str(call.Args["memory_type"]),
		})
	case "delete_by_tag", "forget":
		return e.MemoryDelete(ctx, DeleteRequest{
			ContentHash: str(call.Args["content_hash"]),
			Tags:        strSlice(call.Args["tags"]),
			TagMatch:    str(call.Args["tag_match"]),
		})
	case "update_memory", "update_tags":
		return struct{}{}, e.MemoryUpdate(ctx, UpdateRequest{
			Hash:       str(call.Args["hash"]),
			MemoryType: str(call.Args["memory_type"]),
			Metadata:   mapArg(call.Args["metadata"]),
		})
	case "health_check", "ping":
		return e.MemoryHealth(ctx)
	case "get_stats", "memory_count":
		return e.MemoryStats(ctx)
	case "consolidation_status":
		return e.MemoryConsolidate(ctx, ConsolidateRequest{Action: ConsolidateStatus})
	case "run_consolidation", "consolidate":
		return e.MemoryConsolidate(ctx, ConsolidateRequest{
			Action:      ConsolidateRun,
			TimeHorizon: str(call.Args["time_horizon"]),
			Immediate:   boolArg(call.Args["immediate"]),
		})
	case "cleanup", "dedupe":
		return e.MemoryCleanup(ctx)
	case "ingest_file", "ingest_directory", "import_documents":
		return e.MemoryIngest(ctx, IngestRequest{
			FilePath:      str(call.Args["file_path"]),
			DirectoryPath: str(call.Args["directory_path"]),
			Tags:          strSlice(call.Args["tags"]),
			ChunkSize:     intArg(call.Args["chunk_size"], 0),
			ChunkOverlap:  intArg(call.Args["chunk_overlap"], 0),
			Recursive:     boolArg(call.Args["recursive"]),
		})
	case "rate_memory", "provide_feedback":
		rating := intArg(call.Args["rating"], 0)
		return e.MemoryQuality(ctx, QualityRequest{
			Action:   QualityRate,
			Hash:     str(call.Args["hash"]),
			Rating:   &rating,
			Feedback: str(call.Args["feedback"]),
		})
	case "related_memories", "find_connections":
		return e.MemoryGraph(ctx, GraphRequest{
			Action:  GraphConnected,
			Hash:    str(call.Args["hash"]),
			MaxHops: intArg(call.Args["max_hops"], 1),
		})
	default:
		return nil, unknownLegacyError(call.Name)
	}
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func boolArg(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func intArg(v interface{}, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func strSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func mapArg(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func unknownLegacyError(name string) error {
	return fmt.Errorf("%w: unrecognized legacy operation name %q", errs.ErrInvalidArgument, name)
}
