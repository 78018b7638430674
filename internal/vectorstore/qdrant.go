package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"skillhub/internal/contextutil"
	"skillhub/internal/skill"
)

// summaryFields is the payload projection used for listings and search
// results. The instruction body is fetched only on targeted reads.
var summaryFields = []string{"skill_id", "summary", "is_folder", "sub_skills"}

// QdrantStore implements skill.Store using Qdrant.
//
// Qdrant point ids must be UUIDs, so each skill is stored under a
// deterministic UUIDv5 derived from its skill_id; the skill_id itself
// lives in the payload.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant-backed skill store.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// Extract port from URL, default to 6333 for HTTP
	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
	}, nil
}

// PointID derives the deterministic Qdrant point id for a skill_id.
func PointID(skillID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(skillID)).String()
}

// Upsert inserts or overwrites the skill document. The write waits for the
// store to apply it so subsequent reads observe the new version.
func (s *QdrantStore) Upsert(ctx context.Context, sk *skill.Skill, vector []float32) error {
	logger := contextutil.LoggerFromContext(ctx)

	payload := map[string]any{
		"skill_id":    sk.SkillID,
		"summary":     sk.Summary,
		"is_folder":   sk.IsFolder,
		"sub_skills":  toAnySlice(sk.SubSkills),
		"instruction": sk.Instruction,
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(PointID(sk.SkillID)),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert skill", "skill_id", sk.SkillID, "error", err)
		return fmt.Errorf("failed to upsert skill: %w: %w", skill.ErrStoreUnavailable, err)
	}

	logger.InfoContext(ctx, "upserted skill point", "collection", s.collection, "skill_id", sk.SkillID)
	return nil
}

// SearchByVector returns up to k skills ranked by cosine similarity.
func (s *QdrantStore) SearchByVector(ctx context.Context, vector []float32, k int) ([]skill.Discovery, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayloadInclude(summaryFields...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search skills", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search skills: %w: %w", skill.ErrStoreUnavailable, err)
	}

	results := make([]skill.Discovery, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		doc := skillFromPayload(point.Payload)
		results = append(results, skill.Discovery{
			SkillID:   doc.SkillID,
			Summary:   doc.Summary,
			SubSkills: doc.SubSkills,
			Score:     point.Score,
		})
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "k", k, "results", len(results))
	return results, nil
}

// GetByID fetches a skill by id. Returns skill.ErrNotFound when absent.
func (s *QdrantStore) GetByID(ctx context.Context, skillID string, includeInstruction bool) (*skill.Skill, error) {
	fields := summaryFields
	if includeInstruction {
		fields = append(append([]string{}, summaryFields...), "instruction")
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(PointID(skillID))},
		WithPayload:    qdrant.NewWithPayloadInclude(fields...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get skill: %w: %w", skill.ErrStoreUnavailable, err)
	}
	if len(points) == 0 {
		return nil, skill.ErrNotFound
	}

	doc := skillFromPayload(points[0].Payload)
	return doc, nil
}

// Delete removes a skill by id. Returns false when it did not exist.
// Like Upsert, the write waits for visibility before returning.
func (s *QdrantStore) Delete(ctx context.Context, skillID string) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pointID := qdrant.NewID(PointID(skillID))
	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{pointID},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check skill existence: %w: %w", skill.ErrStoreUnavailable, err)
	}
	if len(existing) == 0 {
		return false, nil
	}

	wait := true
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointID),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete skill", "skill_id", skillID, "error", err)
		return false, fmt.Errorf("failed to delete skill: %w: %w", skill.ErrStoreUnavailable, err)
	}

	logger.InfoContext(ctx, "deleted skill point", "collection", s.collection, "skill_id", skillID)
	return true, nil
}

// ListAll returns up to limit skills without their instruction bodies.
func (s *QdrantStore) ListAll(ctx context.Context, limit int) ([]skill.Skill, error) {
	scrollLimit := uint32(limit)
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &scrollLimit,
		WithPayload:    qdrant.NewWithPayloadInclude(summaryFields...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w: %w", skill.ErrStoreUnavailable, err)
	}

	results := make([]skill.Skill, 0, len(points))
	for _, point := range points {
		results = append(results, *skillFromPayload(point.Payload))
	}
	return results, nil
}

// HealthCheck reports whether Qdrant is reachable.
func (s *QdrantStore) HealthCheck(ctx context.Context) bool {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "qdrant health check failed", "error", err)
		return false
	}
	return true
}

// EnsureCollection ensures the skill collection exists with the specified
// vector size. If it exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		logger.InfoContext(ctx, "collection created", "collection", s.collection, "vector_size", vectorSize)
		return nil
	}

	// Collection exists, validate vector size
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// skillFromPayload converts a Qdrant payload into a Skill.
func skillFromPayload(payload map[string]*qdrant.Value) *skill.Skill {
	meta := convertPayloadToMap(payload)

	sk := &skill.Skill{
		SubSkills: []string{},
	}
	if v, ok := meta["skill_id"].(string); ok {
		sk.SkillID = v
	}
	if v, ok := meta["summary"].(string); ok {
		sk.Summary = v
	}
	if v, ok := meta["is_folder"].(bool); ok {
		sk.IsFolder = v
	}
	if v, ok := meta["instruction"].(string); ok {
		sk.Instruction = v
	}
	if list, ok := meta["sub_skills"].([]any); ok {
		for _, item := range list {
			if sid, ok := item.(string); ok {
				sk.SubSkills = append(sk.SubSkills, sid)
			}
		}
	}
	return sk
}

// convertPayloadToMap converts a Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
