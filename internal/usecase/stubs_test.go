package usecase

import (
	"context"
	"time"

	"github.com/VoltanFr/memcheck-sub004/internal/core/domain"
	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

// memStore backs the stub repositories with plain maps. All stubs share one
// store so a write through one is visible through the others, like rows in a
// single database.
type memStore struct {
	cards         map[string]domain.Card
	versions      map[string]domain.CardVersion
	users         map[string]domain.User
	tagNames      map[string]string
	subscriptions map[string]domain.CardSubscription

	cardErr    error
	versionErr error
}

func newMemStore() *memStore {
	return &memStore{
		cards:         map[string]domain.Card{},
		versions:      map[string]domain.CardVersion{},
		users:         map[string]domain.User{},
		tagNames:      map[string]string{},
		subscriptions: map[string]domain.CardSubscription{},
	}
}

func (s *memStore) addUser(id, name string, subscribeOnEdit bool) {
	s.users[id] = domain.User{
		ID:                    id,
		UserName:              name,
		SubscribeToCardOnEdit: subscribeOnEdit,
		RegisteredAt:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tx() VersionTxFunc {
	return func(ctx context.Context, fn func(cards port.CardRepository, versions port.CardVersionRepository, subscriptions port.CardSubscriptionRepository) error) error {
		return fn(s.cardRepo(), s.versionRepo(), s.subscriptionRepo())
	}
}

func (s *memStore) cardRepo() *stubCardRepo             { return &stubCardRepo{store: s} }
func (s *memStore) versionRepo() *stubVersionRepo       { return &stubVersionRepo{store: s} }
func (s *memStore) userRepo() *stubUserRepo             { return &stubUserRepo{store: s} }
func (s *memStore) tagRepo() *stubTagRepo               { return &stubTagRepo{store: s} }
func (s *memStore) subscriptionRepo() *stubSubscription { return &stubSubscription{store: s} }

type stubCardRepo struct {
	store *memStore
}

func (r *stubCardRepo) Create(_ context.Context, card domain.Card) error {
	if r.store.cardErr != nil {
		return r.store.cardErr
	}
	r.store.cards[card.ID] = card
	return nil
}

func (r *stubCardRepo) GetByID(_ context.Context, id string) (*domain.Card, error) {
	if r.store.cardErr != nil {
		return nil, r.store.cardErr
	}
	card, ok := r.store.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := card
	return &out, nil
}

func (r *stubCardRepo) UpdateConditional(_ context.Context, card domain.Card, expectedPreviousVersionID *string) error {
	current, ok := r.store.cards[card.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !tokenEqual(current.PreviousVersionID, expectedPreviousVersionID) {
		return repository.ErrVersionConflict
	}
	r.store.cards[card.ID] = card
	return nil
}

func (r *stubCardRepo) DeleteConditional(_ context.Context, id string, expectedPreviousVersionID *string) error {
	current, ok := r.store.cards[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !tokenEqual(current.PreviousVersionID, expectedPreviousVersionID) {
		return repository.ErrVersionConflict
	}
	delete(r.store.cards, id)
	return nil
}

func tokenEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type stubVersionRepo struct {
	store *memStore
}

func (r *stubVersionRepo) Insert(_ context.Context, version domain.CardVersion) error {
	if r.store.versionErr != nil {
		return r.store.versionErr
	}
	r.store.versions[version.ID] = version
	return nil
}

func (r *stubVersionRepo) GetByID(_ context.Context, id string) (*domain.CardVersion, error) {
	if r.store.versionErr != nil {
		return nil, r.store.versionErr
	}
	version, ok := r.store.versions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := version
	return &out, nil
}

func (r *stubVersionRepo) GetDeletionByCardID(_ context.Context, cardID string) (*domain.CardVersion, error) {
	if r.store.versionErr != nil {
		return nil, r.store.versionErr
	}
	for _, version := range r.store.versions {
		if version.CardID == cardID && version.VersionType == domain.VersionTypeDeletion {
			out := version
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type stubUserRepo struct {
	store *memStore
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := user
	return &out, nil
}

func (r *stubUserRepo) GetNamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if user, ok := r.store.users[id]; ok {
			names[id] = user.UserName
		}
	}
	return names, nil
}

type stubTagRepo struct {
	store *memStore
}

func (r *stubTagRepo) GetNamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, id := range ids {
		if name, ok := r.store.tagNames[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

type stubSubscription struct {
	store *memStore
}

func (r *stubSubscription) Ensure(_ context.Context, subscription domain.CardSubscription) error {
	key := subscription.CardID + "|" + subscription.UserID
	if _, ok := r.store.subscriptions[key]; ok {
		return nil
	}
	r.store.subscriptions[key] = subscription
	return nil
}

func (r *stubSubscription) ListForUser(_ context.Context, userID string) ([]domain.CardSubscription, error) {
	var out []domain.CardSubscription
	for _, subscription := range r.store.subscriptions {
		if subscription.UserID == userID {
			out = append(out, subscription)
		}
	}
	return out, nil
}

// stubNameCache is a map-backed user name cache recording lookups and writes.
type stubNameCache struct {
	names    map[string]string
	getErr   error
	getCalls int
	setCalls int
}

func newStubNameCache() *stubNameCache {
	return &stubNameCache{names: map[string]string{}}
}

func (c *stubNameCache) GetUserName(_ context.Context, userID string) (string, error) {
	c.getCalls++
	if c.getErr != nil {
		return "", c.getErr
	}
	name, ok := c.names[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return name, nil
}

func (c *stubNameCache) SetUserName(_ context.Context, userID, name string, _ time.Duration) error {
	c.setCalls++
	c.names[userID] = name
	return nil
}

// capturePublisher records published events.
type capturePublisher struct {
	versionEvents  []domain.CardVersionCreatedEvent
	deletionEvents []domain.CardDeletedEvent
}

func (p *capturePublisher) PublishCardVersionCreated(_ context.Context, event domain.CardVersionCreatedEvent) error {
	p.versionEvents = append(p.versionEvents, event)
	return nil
}

func (p *capturePublisher) PublishCardDeleted(_ context.Context, event domain.CardDeletedEvent) error {
	p.deletionEvents = append(p.deletionEvents, event)
	return nil
}
