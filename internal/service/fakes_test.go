package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"assetdesk/internal/auth"
	"assetdesk/internal/media"
	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// memStore is an in-memory backing store shared by the fake repositories.
// RunInTx snapshots it and restores the snapshot when the unit of work fails.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	assets   map[uuid.UUID]model.Asset
	requests map[uuid.UUID]model.Request
	audits   []model.AuditLog
	clock    time.Time

	failAudit error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]model.User{},
		assets:   map[uuid.UUID]model.Asset{},
		requests: map[uuid.UUID]model.Request{},
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type snapshot struct {
	users    map[uuid.UUID]model.User
	assets   map[uuid.UUID]model.Asset
	requests map[uuid.UUID]model.Request
	audits   []model.AuditLog
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		users:    make(map[uuid.UUID]model.User, len(s.users)),
		assets:   make(map[uuid.UUID]model.Asset, len(s.assets)),
		requests: make(map[uuid.UUID]model.Request, len(s.requests)),
		audits:   append([]model.AuditLog(nil), s.audits...),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.assets {
		snap.assets[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.assets = snap.assets
	s.requests = snap.requests
	s.audits = snap.audits
}

func (s *memStore) counts() (users, assets, requests int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.assets), len(s.requests)
}

type memTx struct{ s *memStore }

func (t memTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	snap := t.s.snapshot()
	if err := fn(ctx); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// --- users ---

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("insert user: %w", repository.ErrDuplicateKey)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r memUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r memUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return pageOf(all, page, limit), int64(len(all)), nil
}

func pageOf[T any](all []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// --- assets ---

type memAssetRepo struct{ s *memStore }

func (r memAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	now := r.s.tick()
	asset.CreatedAt, asset.UpdatedAt = now, now
	r.s.assets[asset.ID] = *asset
	return nil
}

func (r memAssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assets[asset.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	asset.UpdatedAt = r.s.tick()
	r.s.assets[asset.ID] = *asset
	return nil
}

func (r memAssetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.assets, id)
	return nil
}

func (r memAssetRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r memAssetRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	return r.FindByID(ctx, id)
}

func (r memAssetRepo) sorted() []model.Asset {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]model.Asset, 0, len(r.s.assets))
	for _, a := range r.s.assets {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (r memAssetRepo) ListAll(ctx context.Context) ([]model.Asset, error) {
	return r.sorted(), nil
}

func (r memAssetRepo) List(ctx context.Context, page, limit int) ([]model.Asset, int64, error) {
	all := r.sorted()
	return pageOf(all, page, limit), int64(len(all)), nil
}

// --- requests ---

type memRequestRepo struct{ s *memStore }

func (r memRequestRepo) withAsset(req model.Request) model.Request {
	if a, ok := r.s.assets[req.AssetID]; ok {
		req.Asset = &a
	}
	return req
}

func (r memRequestRepo) Create(ctx context.Context, req *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assets[req.AssetID]; !ok {
		return errors.New("foreign key violation: asset")
	}
	if _, ok := r.s.users[req.UserID]; !ok {
		return errors.New("foreign key violation: user")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := r.s.tick()
	req.CreatedAt, req.UpdatedAt = now, now
	stored := *req
	stored.Asset, stored.User = nil, nil
	r.s.requests[req.ID] = stored
	return nil
}

func (r memRequestRepo) Update(ctx context.Context, req *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	req.UpdatedAt = r.s.tick()
	stored := *req
	stored.Asset, stored.User = nil, nil
	r.s.requests[req.ID] = stored
	return nil
}

func (r memRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	req = r.withAsset(req)
	return &req, nil
}

func (r memRequestRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r memRequestRepo) filter(match func(model.Request) bool, newestFirst bool) []model.Request {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Request
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, r.withAsset(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r memRequestRepo) ListByStatus(ctx context.Context, status string) ([]model.Request, error) {
	return r.filter(func(req model.Request) bool { return req.Status == status }, false), nil
}

func (r memRequestRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error) {
	return r.filter(func(req model.Request) bool { return req.UserID == userID }, true), nil
}

func (r memRequestRepo) DeleteByAsset(ctx context.Context, assetID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, req := range r.s.requests {
		if req.AssetID == assetID {
			delete(r.s.requests, id)
			n++
		}
	}
	return n, nil
}

func (r memRequestRepo) all() []model.Request {
	return r.filter(func(model.Request) bool { return true }, false)
}

// --- audit ---

type memAuditRepo struct{ s *memStore }

func (r memAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAudit != nil {
		return r.s.failAudit
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = r.s.tick()
	if entry.UserID != nil {
		if u, ok := r.s.users[*entry.UserID]; ok {
			entry.User = &u
		}
	}
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r memAuditRepo) List(ctx context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		e := r.s.audits[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		all = append(all, e)
	}
	return pageOf(all, page, limit), int64(len(all)), nil
}

// --- media and events ---

type fakeMedia struct {
	mu        sync.Mutex
	uploadErr error
	shared    bool
	uploads   [][]byte
	deleted   []string
}

func (m *fakeMedia) Upload(ctx context.Context, r io.Reader) (media.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return media.Object{}, m.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return media.Object{}, err
	}
	m.uploads = append(m.uploads, data)
	return media.Object{URL: fmt.Sprintf("/media/img-%d.png", len(m.uploads)), New: !m.shared}, nil
}

func (m *fakeMedia) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

type publishedEvent struct {
	name string
	data map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(event string, data map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, data: data})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

// --- fixture ---

type fixture struct {
	store     *memStore
	users     memUserRepo
	assets    memAssetRepo
	requests  memRequestRepo
	audit     memAuditRepo
	media     *fakeMedia
	events    *fakePublisher
	tokens    *auth.TokenManager
	userSvc   UserService
	inventory InventoryService
	requestSv RequestService
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:    s,
		users:    memUserRepo{s},
		assets:   memAssetRepo{s},
		requests: memRequestRepo{s},
		audit:    memAuditRepo{s},
		media:    &fakeMedia{},
		events:   &fakePublisher{},
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
	}
	tx := memTx{s}

	userSvc := NewUserService(f.users, f.audit, tx, f.tokens)
	userSvc.(*userService).hashCost = bcrypt.MinCost
	f.userSvc = userSvc
	f.inventory = NewInventoryService(f.assets, f.requests, f.users, f.audit, tx, f.media, f.events)
	f.requestSv = NewRequestService(f.requests, f.assets, f.users, f.audit, tx, f.events)
	return f
}

// seedUser inserts a user directly, bypassing signup.
func (f *fixture) seedUser(username string, role model.Role) model.User {
	u := model.User{Username: username, Email: username + "@example.test", Password: "x", Role: role}
	if err := f.users.Create(context.Background(), &u); err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) seedAsset(name string) model.Asset {
	a := model.Asset{Name: name, Description: name + " description", Category: "hardware"}
	if err := f.assets.Create(context.Background(), &a); err != nil {
		panic(err)
	}
	return a
}

func (f *fixture) seedRequest(asset model.Asset, user model.User, status string) model.Request {
	r := model.Request{AssetID: asset.ID, UserID: user.ID, Reason: "need it", Quantity: 1, Urgency: "low", Status: status}
	if err := f.requests.Create(context.Background(), &r); err != nil {
		panic(err)
	}
	return r
}

func imageBody() io.Reader {
	return bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfake"))
}
