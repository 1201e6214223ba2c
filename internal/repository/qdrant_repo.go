package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host   string
	Port   int
	APIKey string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS bool   // Explicitly enable TLS without API Key
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository handles vector operations with Qdrant. Collections
// are created per asset sub-index (image/text) and dropped when the
// asset goes away; they are build cache, not source of truth.
type QdrantRepository struct {
	conn          *grpc.ClientConn
	pointsClient  pb.PointsClient
	collectClient pb.CollectionsClient
}

// NewQdrantRepository creates a new QdrantRepository.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var opts []grpc.DialOption

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:          conn,
		pointsClient:  pb.NewPointsClient(conn),
		collectClient: pb.NewCollectionsClient(conn),
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// HasCollection reports whether a collection already exists. The
// multimodal index uses this as its at-most-once indexing check.
func (r *QdrantRepository) HasCollection(ctx context.Context, name string) (bool, error) {
	resp, err := r.collectClient.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: name,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return resp.GetResult().GetExists(), nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (r *QdrantRepository) EnsureCollection(ctx context.Context, name string, dimension int) error {
	exists, err := r.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	return nil
}

// DropCollection removes a collection. Missing collections are not an error.
func (r *QdrantRepository) DropCollection(ctx context.Context, name string) error {
	_, err := r.collectClient.Delete(ctx, &pb.DeleteCollection{
		CollectionName: name,
	})
	if err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

// ContentPayload is the payload stored with each indexed point. Content
// holds the raw retrievable unit: a base64-encoded frame/page image for
// the image sub-index, or a passage of text for the text sub-index.
type ContentPayload struct {
	AssetID   string `json:"asset_id"`
	Kind      string `json:"kind"` // image, text
	Content   string `json:"content"`
	Reference string `json:"reference"` // e.g. "Page 3", "Frame 00012"
}

// ContentPoint couples a vector with its payload for upsert.
type ContentPoint struct {
	ID      string
	Vector  []float32
	Payload ContentPayload
}

// UpsertPoints inserts or updates a batch of content points.
func (r *QdrantRepository) UpsertPoints(ctx context.Context, collection string, points []ContentPoint) error {
	if len(points) == 0 {
		return nil
	}

	pbPoints := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		uid, err := uuid.Parse(p.ID)
		if err != nil {
			return fmt.Errorf("invalid point ID: %w", err)
		}
		pbPoints = append(pbPoints, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				"asset_id":  {Kind: &pb.Value_StringValue{StringValue: p.Payload.AssetID}},
				"kind":      {Kind: &pb.Value_StringValue{StringValue: p.Payload.Kind}},
				"content":   {Kind: &pb.Value_StringValue{StringValue: p.Payload.Content}},
				"reference": {Kind: &pb.Value_StringValue{StringValue: p.Payload.Reference}},
			},
		})
	}

	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         pbPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// ScoredContent is one similarity-search hit.
type ScoredContent struct {
	ID      string
	Score   float32
	Payload ContentPayload
}

// Search performs a vector similarity search in one sub-index collection.
func (r *QdrantRepository) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredContent, error) {
	resp, err := r.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", collection, err)
	}

	results := make([]ScoredContent, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = ScoredContent{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}

	return results, nil
}

func parsePayload(payload map[string]*pb.Value) ContentPayload {
	p := ContentPayload{}
	if payload == nil {
		return p
	}
	if v, ok := payload["asset_id"]; ok {
		p.AssetID = v.GetStringValue()
	}
	if v, ok := payload["kind"]; ok {
		p.Kind = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		p.Content = v.GetStringValue()
	}
	if v, ok := payload["reference"]; ok {
		p.Reference = v.GetStringValue()
	}
	return p
}
