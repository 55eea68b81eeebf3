package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/domain/documentModel"
	"github.com/akolanti/ClinicalRAG/internal/rag/vectorDB"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var (
	logger           *logger_i.Logger
	quadrantInstance *qdrant.Client
	once             sync.Once
)

// ClientHolder mirrors committed index rows into one Qdrant collection and searches them.
type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
}

var (
	_ vectorDB.Searcher = (*ClientHolder)(nil)
	_ vectorDB.Mirror   = (*ClientHolder)(nil)
)

// GetQuadrantClient connects once per process. It returns nil when Qdrant is not configured or unreachable.
func GetQuadrantClient(ctx context.Context, settings *config.Settings) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		if settings.QdrantHost == "" {
			logger.Info("Qdrant not configured")
			return
		}
		res := newClient(ctx, settings)
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{QObj: quadrantInstance, collection: config.QdrantCollection}
}

func newClient(ctx context.Context, settings *config.Settings) *qdrant.Client {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     settings.QdrantHost,
		Port:     settings.QdrantPort,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "error", err)
		return nil
	}

	err = createCollection(ctx, client, config.QdrantCollection, uint64(settings.EmbeddingDimension))
	if err != nil {
		logger.Error("could not create collection", "collectionName", config.QdrantCollection, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

func (db *ClientHolder) Search(ctx context.Context, vectorFloat []float32, k int) ([]vectorDB.Match, error) {
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.WithTrace(ctx).Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := make([]vectorDB.Match, 0, len(result))
	for _, hit := range result {
		matches = append(matches, vectorDB.Match{
			Entry:    entryFromPayload(hit.Payload),
			Distance: hit.Score,
		})
	}
	return matches, nil
}

// UpsertBatch writes rows startRow.. so a point id equals its row in the flat index.
func (db *ClientHolder) UpsertBatch(ctx context.Context, startRow int, entries []documentModel.IndexEntry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("mismatch: got %d entries but %d vectors", len(entries), len(vectors))
	}
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(startRow + i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":       e.DocId,
				"text_content": e.TextContent,
				"source":       e.Source,
				"type":         e.Type,
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func entryFromPayload(payload map[string]*qdrant.Value) documentModel.IndexEntry {
	return documentModel.IndexEntry{
		DocId:       payload["doc_id"].GetStringValue(),
		TextContent: payload["text_content"].GetStringValue(),
		Source:      payload["source"].GetStringValue(),
		Type:        payload["type"].GetStringValue(),
	}
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Euclid,
		}),
	})
}
