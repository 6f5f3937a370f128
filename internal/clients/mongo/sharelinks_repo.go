package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noteflow/internal/services/sharelinks"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ShareLinksRepo implements sharelinks.Repository on "share_links".
type ShareLinksRepo struct {
	collection *mongo.Collection
}

// NewShareLinksRepo creates the repository. Besides the lookup index it
// sets a TTL index on expires_at so the server also reaps expired links.
func NewShareLinksRepo(parentCtx context.Context, db *mongo.Database) (*ShareLinksRepo, error) {
	collection := db.Collection("share_links")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "note_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create share_links index: %w", err)
	}
	return &ShareLinksRepo{collection: collection}, nil
}

func (r *ShareLinksRepo) Create(ctx context.Context, l *sharelinks.Link) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, l)
	return err
}

func (r *ShareLinksRepo) FindByID(ctx context.Context, id string) (*sharelinks.Link, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var l sharelinks.Link
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sharelinks.ErrLinkNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *ShareLinksRepo) ListByNote(ctx context.Context, noteID string) ([]*sharelinks.Link, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"note_id": noteID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var links []*sharelinks.Link
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// Revoke stamps revoked_at once. A second revoke leaves the first stamp.
func (r *ShareLinksRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": ExistsFalse},
		bson.M{"$set": bson.M{"revoked_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return sharelinks.ErrLinkNotFound
	}
	return nil
}

func (r *ShareLinksRepo) DeleteByNote(ctx context.Context, noteID string) (int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"note_id": noteID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *ShareLinksRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
