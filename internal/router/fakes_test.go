package router

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"blogapi/internal/auth"
	"blogapi/internal/model"
	"blogapi/internal/storage"
)

// memStore backs the in-memory repositories used by the router tests.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]model.User
	profiles map[uint]model.Profile // keyed by user id
	posts    map[uint]model.Post
	nextUser uint
	nextProf uint
	nextPost uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint]model.User{},
		profiles: map[uint]model.Profile{},
		posts:    map[uint]model.Post{},
	}
}

type memUsers struct{ s *memStore }

func (r memUsers) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.nextUser++
	r.s.nextProf++
	now := time.Now()
	user.ID, user.CreatedAt, user.UpdatedAt = r.s.nextUser, now, now
	profile.ID, profile.UserID = r.s.nextProf, user.ID
	r.s.users[user.ID] = *user
	r.s.profiles[user.ID] = *profile
	return nil
}

func (r memUsers) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r memUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

type memProfiles struct{ s *memStore }

func (r memProfiles) FindByUserID(ctx context.Context, userID uint) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memProfiles) Update(ctx context.Context, profile *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.profiles[profile.UserID] = *profile
	return nil
}

type memPosts struct{ s *memStore }

func (r memPosts) withAuthor(p model.Post) model.Post {
	p.AuthorUsername = r.s.users[p.AuthorID].Username
	return p
}

func (r memPosts) Create(ctx context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPost++
	now := time.Now()
	post.ID, post.CreatedAt, post.UpdatedAt = r.s.nextPost, now, now
	*post = r.withAuthor(*post)
	r.s.posts[post.ID] = *post
	return nil
}

func (r memPosts) Update(ctx context.Context, post *model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[post.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	post.UpdatedAt = time.Now()
	*post = r.withAuthor(*post)
	r.s.posts[post.ID] = *post
	return nil
}

func (r memPosts) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (r memPosts) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memPosts) List(ctx context.Context) ([]model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memTokens is an in-memory refresh token store.
type memTokens struct {
	mu     sync.Mutex
	tokens map[string]uint
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[string]uint{}}
}

func (m *memTokens) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenID] = userID
	return nil
}

func (m *memTokens) GetRefreshToken(ctx context.Context, tokenID string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[tokenID]
	if !ok {
		return 0, auth.ErrRefreshTokenNotFound
	}
	return userID, nil
}

func (m *memTokens) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, tokenID)
	return nil
}

// memImages is an in-memory image bucket.
type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemImages() *memImages {
	return &memImages{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memImages) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memImages) Get(ctx context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (m *memImages) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
