package memory

import (
	"context"
	"sync"

	"noteflow/internal/services/auth"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UsersRepo is an auth.UsersRepo with a unique email index.
type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[bson.ObjectID]*auth.User
	byEmail map[string]bson.ObjectID
}

// NewUsersRepo creates an empty store.
func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    map[bson.ObjectID]*auth.User{},
		byEmail: map[string]bson.ObjectID{},
	}
}

func (r *UsersRepo) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[u.Email]; taken {
		return auth.ErrDuplicate
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	c := *u
	r.byID[u.ID] = &c
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *UsersRepo) FindByID(_ context.Context, id bson.ObjectID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	c := *u
	return &c, nil
}
