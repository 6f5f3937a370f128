package mongo

import (
	"context"
	"fmt"

	"noteflow/internal/services/rag"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// VectorsRepo implements rag.VectorIndex on "note_vectors". Namespaces are
// one note each, so queries load the namespace and rank it in process.
type VectorsRepo struct {
	collection *mongo.Collection
}

type vectorDoc struct {
	ID        string       `bson:"_id"`
	Namespace string       `bson:"namespace"`
	Vector    []float32    `bson:"vector"`
	Text      string       `bson:"text"`
	Metadata  rag.Metadata `bson:"metadata"`
}

// NewVectorsRepo creates the repository and its namespace index.
func NewVectorsRepo(parentCtx context.Context, db *mongo.Database) (*VectorsRepo, error) {
	collection := db.Collection("note_vectors")

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "namespace", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note_vectors index: %w", err)
	}
	return &VectorsRepo{collection: collection}, nil
}

// Upsert replaces records by id in one unordered bulk write.
func (r *VectorsRepo) Upsert(ctx context.Context, namespace string, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	models := make([]mongo.WriteModel, len(records))
	for i, rec := range records {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": rec.ID}).
			SetReplacement(vectorDoc{
				ID:        rec.ID,
				Namespace: namespace,
				Vector:    rec.Vector,
				Text:      rec.Text,
				Metadata:  rec.Metadata,
			}).
			SetUpsert(true)
	}

	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

// DeleteNamespace removes every record of the namespace.
func (r *VectorsRepo) DeleteNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"namespace": namespace})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return rag.ErrNamespaceNotFound
	}
	return nil
}

// Query ranks the namespace by cosine similarity.
func (r *VectorsRepo) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]rag.Match, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"namespace": namespace})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []vectorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]rag.Record, len(docs))
	for i, d := range docs {
		records[i] = rag.Record{ID: d.ID, Vector: d.Vector, Text: d.Text, Metadata: d.Metadata}
	}
	return rag.Rank(records, vector, topK), nil
}
