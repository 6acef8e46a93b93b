package store

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/logging"
)

// RemoteConfig configures the gRPC connection to the remote vector index
// (C4). This is a narrower contract than MemoryStore: the remote store is
// never read from on the request path (§5), it is only written to by the
// sync engine as an eventually-consistent mirror.
type RemoteConfig struct {
	Host           string
	Port           int
	UseTLS         bool
	APIKey         string
	Collection     string
	VectorSize     uint64
	MaxMessageSize int
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// RateLimit caps outbound requests per second against the remote
	// endpoint; 0 disables limiting.
	RateLimit float64
}

// ApplyDefaults fills unset fields with sensible defaults for local
// development against a Qdrant instance.
func (c *RemoteConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "memories"
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// RemoteMirror is C4's contract: the small set of operations the sync
// engine needs to mirror local writes to the remote index. It deliberately
// excludes retrieval; reads are served from LocalStore only. Store and
// update both map onto Put (an upsert), since the sync engine always hands
// it the full, already-merged Memory from the local authoritative copy.
type RemoteMirror interface {
	Ping(ctx context.Context) error
	Put(ctx context.Context, m Memory) error
	Delete(ctx context.Context, hash string) error
	Close() error
}

// RemoteStore implements RemoteMirror against a Qdrant gRPC endpoint.
type RemoteStore struct {
	client  *qdrant.Client
	config  RemoteConfig
	logger  *logging.Logger
	limiter *rate.Limiter
}

// NewRemoteStore dials the remote endpoint and ensures its collection
// exists. Dial and health-check failures are returned as errs.ErrTransient;
// a failure to look up or create the collection is classified by
// classifyQdrantErr, and an absent collection with VectorSize unset is
// errs.ErrInvalidArgument.
func NewRemoteStore(ctx context.Context, cfg RemoteConfig, logger *logging.Logger) (*RemoteStore, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}

	dialOpts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		),
	}
	if !cfg.UseTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		UseTLS:      cfg.UseTLS,
		APIKey:      cfg.APIKey,
		GrpcOptions: dialOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dialing qdrant: %v", errs.ErrTransient, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if _, err := client.HealthCheck(dialCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: qdrant health check: %v", errs.ErrTransient, err)
	}

	rs := &RemoteStore{client: client, config: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		rs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}
	if err := rs.ensureCollection(dialCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return rs, nil
}

// wait blocks until the rate limiter admits another request, if one is
// configured.
func (r *RemoteStore) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", errs.ErrTimeout, err)
	}
	return nil
}

func (r *RemoteStore) ensureCollection(ctx context.Context) error {
	_, err := r.client.GetCollectionInfo(ctx, r.config.Collection)
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
		return classifyQdrantErr(err)
	}
	if r.config.VectorSize == 0 {
		return fmt.Errorf("%w: remote collection %q absent and vector size unset", errs.ErrInvalidArgument, r.config.Collection)
	}
	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     r.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classifyQdrantErr(err)
	}
	return nil
}

// Ping performs a cheap liveness check; the sync engine calls it once,
// during Start's initial reconcile.
func (r *RemoteStore) Ping(ctx context.Context) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	defer cancel()
	if _, err := r.client.HealthCheck(ctx); err != nil {
		return classifyQdrantErr(err)
	}
	return nil
}

// Put upserts a memory's embedding and payload into the remote collection,
// keyed by content hash.
func (r *RemoteStore) Put(ctx context.Context, m Memory) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	defer cancel()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(hashToUUID(m.ContentHash)),
		Vectors: qdrant.NewVectors(m.Embedding...),
		Payload: payloadFromMemory(m),
	}

	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.config.Collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		r.logger.Warn(ctx, "remote upsert failed", zap.String("hash", m.ContentHash), zap.Error(err))
		return classifyQdrantErr(err)
	}
	return nil
}

// Delete removes the remote point for hash.
func (r *RemoteStore) Delete(ctx context.Context, hash string) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	defer cancel()

	_, err := r.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: r.config.Collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewIDUUID(hashToUUID(hash))}},
			},
		},
	})
	if err != nil {
		return classifyQdrantErr(err)
	}
	return nil
}

// Close releases the gRPC connection.
func (r *RemoteStore) Close() error {
	return r.client.Close()
}

func payloadFromMemory(m Memory) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"content_hash": qdrantValue(m.ContentHash),
		"content":      qdrantValue(m.Content),
		"memory_type":  qdrantValue(m.MemoryType),
		"tags":         qdrantValue(m.Tags),
		"updated_at":   qdrantValue(m.UpdatedAt),
	}
	for k, v := range m.Metadata {
		payload["meta_"+k] = qdrantValue(v)
	}
	return payload
}

func qdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case []string:
		values := make([]*qdrant.Value, len(val))
		for i, s := range val {
			values[i] = qdrantValue(s)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

// classifyQdrantErr maps a gRPC status error onto the taxonomy in
// internal/errs, per spec.md §7: transient server conditions are retried,
// permanent client-payload conditions are not.
func classifyQdrantErr(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", errs.ErrTransient, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", errs.ErrTransient, err)
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists:
		return fmt.Errorf("%w: %v", errs.ErrPermanent, err)
	default:
		return fmt.Errorf("%w: %v", errs.ErrTransient, err)
	}
}

// hashToUUID derives a deterministic UUID from a content hash, since Qdrant
// point IDs must be a UUID or unsigned integer, not an arbitrary string.
func hashToUUID(hash string) string {
	if len(hash) < 32 {
		return hash
	}
	b := hash[:32]
	return fmt.Sprintf("%s-%s-%s-%s-%s", b[0:8], b[8:12], b[12:16], b[16:20], b[20:32])
}
