package mongo

import (
	"regexp"

	"noteflow/internal/services/notes"
	"noteflow/internal/services/permissions"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ExistsFalse is a reusable shortcut for {$exists:false}.
var ExistsFalse = bson.M{"$exists": false}

var grantedLevels = bson.M{"$in": bson.A{string(permissions.View), string(permissions.Edit)}}

func userGrantPath(userID string) string {
	return "permissions.users." + userID
}

func userNamePath(userID string) string {
	return "permissions.names." + userID
}

// scopeFilter selects notes the subject owns, was granted, or both.
func scopeFilter(subject string, scope notes.Scope) bson.M {
	owned := bson.M{"owner": subject}
	shared := bson.M{
		"owner":                bson.M{"$ne": subject},
		userGrantPath(subject): grantedLevels,
	}
	switch scope {
	case notes.ScopeOwned:
		return owned
	case notes.ScopeShared:
		return shared
	default:
		return bson.M{"$or": bson.A{owned, shared}}
	}
}

// listFilter combines scope, title prefix and keyset cursor.
func listFilter(q notes.ListQuery) bson.M {
	and := bson.A{scopeFilter(q.Subject, q.Scope)}

	if q.TitlePrefix != "" {
		and = append(and, bson.M{"title": bson.M{
			"$regex":   "^" + regexp.QuoteMeta(q.TitlePrefix),
			"$options": "i",
		}})
	}

	if c := q.After; c != nil {
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"updated_at": bson.M{"$lt": c.UpdatedAt}},
			bson.M{"updated_at": c.UpdatedAt, "_id": bson.M{"$lt": c.ID}},
		}})
	}

	if len(and) == 1 {
		return and[0].(bson.M)
	}
	return bson.M{"$and": and}
}

// validKey rejects user ids that would change the shape of a dotted path.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
