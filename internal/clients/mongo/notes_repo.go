package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noteflow/internal/apperr"
	"noteflow/internal/logger"
	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotesRepo implements notes.Repository on the "notes" collection.
type NotesRepo struct {
	collection *mongo.Collection
}

// noteDoc mirrors notes.Note but keeps permissions raw so older shapes can
// be read.
type noteDoc struct {
	ID          string        `bson:"_id"`
	Owner       string        `bson:"owner"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Content     []notes.Block `bson:"content"`
	Permissions bson.Raw      `bson:"permissions,omitempty"`
	CreatedAt   bson.DateTime `bson:"created_at"`
	UpdatedAt   bson.DateTime `bson:"updated_at"`
}

func (d *noteDoc) toNote() *notes.Note {
	return &notes.Note{
		ID:          d.ID,
		Owner:       d.Owner,
		Title:       d.Title,
		Description: d.Description,
		Content:     d.Content,
		Permissions: normalizePermissions(d.Permissions),
		CreatedAt:   d.CreatedAt.Time().UTC(),
		UpdatedAt:   d.UpdatedAt.Time().UTC(),
	}
}

// translateNotFound maps the driver ErrNoDocuments to ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates the repository and its indexes.
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner", Value: 1},
				{Key: "updated_at", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("owner_updated_desc"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("updated_desc"),
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.L().Error("failed to create index", "collection", "notes", "error", err)
		return nil, fmt.Errorf("failed to create notes collection index: %w", err)
	}

	return &NotesRepo{collection: collection}, nil
}

// Create inserts the note as given.
func (r *NotesRepo) Create(ctx context.Context, note *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, note)
	return err
}

// FindByID loads one note, normalizing legacy permission shapes.
func (r *NotesRepo) FindByID(ctx context.Context, id string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var doc noteDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateNotFound(err)
	}
	return doc.toNote(), nil
}

// List returns one page ordered by updated_at then _id, both descending.
func (r *NotesRepo) List(ctx context.Context, q notes.ListQuery) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.collection.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []noteDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*notes.Note, len(docs))
	for i := range docs {
		out[i] = docs[i].toNote()
	}
	return out, nil
}

// Update writes the patch with an aggregation pipeline so updated_at becomes
// max($$NOW, updated_at+1ms) in the same server-side step.
func (r *NotesRepo) Update(ctx context.Context, id string, patch notes.Patch) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set := bson.M{
		"updated_at": bson.M{"$max": bson.A{"$$NOW", bson.M{"$add": bson.A{"$updated_at", 1}}}},
	}
	// $literal keeps user text that starts with $ from being read as an expression
	if patch.Title != nil {
		set["title"] = bson.M{"$literal": *patch.Title}
	}
	if patch.Description != nil {
		set["description"] = bson.M{"$literal": *patch.Description}
	}
	if patch.Content != nil {
		set["content"] = bson.M{"$literal": *patch.Content}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc noteDoc
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, mongo.Pipeline{{{Key: "$set", Value: set}}}, opts).Decode(&doc)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return doc.toNote(), nil
}

// Delete removes the note.
func (r *NotesRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}

// MergeGrant sets one user's level with a targeted $set. The filter skips
// the owner and, for view, anyone already holding edit, so the stored level
// only goes up and concurrent redemptions never overwrite each other.
func (r *NotesRepo) MergeGrant(ctx context.Context, id, userID string, level permissions.Level, name string) (permissions.Level, error) {
	if !validKey.MatchString(userID) || !level.Valid() {
		return permissions.None, apperr.New(apperr.ErrInvalidArgument, "invalid grant")
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{"_id": id, "owner": bson.M{"$ne": userID}}
	if level == permissions.View {
		filter[userGrantPath(userID)] = bson.M{"$ne": string(permissions.Edit)}
	}

	set := bson.M{userGrantPath(userID): string(level)}
	if name != "" {
		set[userNamePath(userID)] = name
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return permissions.None, err
	}
	if res.MatchedCount == 1 {
		return level, nil
	}

	// filter missed: either the note is gone or the user already ranks higher
	n, err := r.FindByID(ctx, id)
	if err != nil {
		return permissions.None, err
	}
	if n.Owner == userID {
		return permissions.Edit, nil
	}
	return permissions.Max(n.Permissions.Grant(userID), level), nil
}

// ApplySharing writes all grant changes in one $set/$unset.
func (r *NotesRepo) ApplySharing(ctx context.Context, id string, change notes.SharingChange) (*notes.Note, error) {
	set := bson.M{}
	unset := bson.M{}

	for uid, lvl := range change.Set {
		if !validKey.MatchString(uid) {
			return nil, apperr.New(apperr.ErrInvalidArgument, "invalid grantee id")
		}
		set[userGrantPath(uid)] = string(lvl)
		if name := change.Names[uid]; name != "" {
			set[userNamePath(uid)] = name
		}
	}
	for _, uid := range change.Unset {
		if _, alsoSet := change.Set[uid]; alsoSet || !validKey.MatchString(uid) {
			continue
		}
		unset[userGrantPath(uid)] = ""
		unset[userNamePath(uid)] = ""
	}
	if change.Global != nil {
		if change.Global.Valid() {
			set["permissions.global"] = string(*change.Global)
		} else {
			unset["permissions.global"] = ""
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc noteDoc
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		return nil, translateNotFound(err)
	}
	return doc.toNote(), nil
}

// normalizePermissions reads every permission shape notes were ever stored
// with: the canonical {users, global, names}, a nested {user, global}, a
// flat {uid: level} map and dotted "users.<uid>" keys. Unknown levels are
// dropped.
func normalizePermissions(raw bson.Raw) permissions.Record {
	rec := permissions.Record{}
	if len(raw) == 0 {
		return rec
	}
	elems, err := raw.Elements()
	if err != nil {
		return rec
	}

	grant := func(uid, lvl string) {
		level, ok := permissions.ParseLevel(lvl)
		if !ok || !level.Valid() || uid == "" {
			return
		}
		if rec.Users == nil {
			rec.Users = map[string]permissions.Level{}
		}
		rec.Users[uid] = permissions.Max(rec.Users[uid], level)
	}

	for _, el := range elems {
		key, val := el.Key(), el.Value()
		switch {
		case key == "global":
			if s, ok := val.StringValueOK(); ok {
				if level, ok := permissions.ParseLevel(s); ok {
					rec.Global = level
				}
			}
		case key == "users" || key == "user":
			if doc, ok := val.DocumentOK(); ok {
				forEachString(doc, grant)
			}
		case key == "names":
			if doc, ok := val.DocumentOK(); ok {
				forEachString(doc, func(uid, name string) {
					if rec.Names == nil {
						rec.Names = map[string]string{}
					}
					rec.Names[uid] = name
				})
			}
		case strings.HasPrefix(key, "users.") || strings.HasPrefix(key, "user."):
			if s, ok := val.StringValueOK(); ok {
				grant(key[strings.IndexByte(key, '.')+1:], s)
			}
		default:
			if s, ok := val.StringValueOK(); ok {
				grant(key, s)
			}
		}
	}
	return rec
}

func forEachString(doc bson.Raw, fn func(key, value string)) {
	elems, err := doc.Elements()
	if err != nil {
		return
	}
	for _, el := range elems {
		if s, ok := el.Value().StringValueOK(); ok {
			fn(el.Key(), s)
		}
	}
}
