package handler

import (
	"context"
	"sort"
	"sync"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// memStore is an in-memory implementation of all repository interfaces,
// used to drive the full HTTP stack in tests without a database.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	plugins  map[string]*domain.Plugin
	deposits map[string]*domain.Deposit
	settings *domain.PaymentSettings
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		plugins:  make(map[string]*domain.Plugin),
		deposits: make(map[string]*domain.Deposit),
	}
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Users:    (*memUserRepo)(s),
		Plugins:  (*memPluginRepo)(s),
		Deposits: (*memDepositRepo)(s),
		Settings: (*memSettingsRepo)(s),
	}
}

type memUserRepo memStore

func (s *memUserRepo) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	clone.Purchases = append([]string{}, user.Purchases...)
	return &clone, nil
}

func (s *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			clone.Purchases = append([]string{}, u.Purchases...)
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*domain.User
	for _, u := range s.users {
		clone := *u
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Username < items[j].Username })
	return &repository.ListResult[domain.User]{
		Items: items, Total: int64(len(items)), Offset: opts.Offset, Limit: opts.Limit,
	}, nil
}

func (s *memUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *memUserRepo) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.IsAdmin = isAdmin
	return nil
}

func (s *memUserRepo) AdjustCoins(_ context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Coins+delta < 0 {
		return domain.ErrInsufficientFunds
	}
	user.Coins += delta
	return nil
}

func (s *memUserRepo) AddPurchase(_ context.Context, userID, pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, id := range user.Purchases {
		if id == pluginID {
			return nil
		}
	}
	user.Purchases = append(user.Purchases, pluginID)
	return nil
}

func (s *memUserRepo) Purchase(_ context.Context, userID, pluginID string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, id := range user.Purchases {
		if id == pluginID {
			return domain.ErrAlreadyPurchased
		}
	}
	if user.Coins < price {
		return domain.ErrInsufficientFunds
	}
	user.Coins -= price
	user.Purchases = append(user.Purchases, pluginID)
	return nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

type memPluginRepo memStore

func (s *memPluginRepo) Create(_ context.Context, plugin *domain.Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *plugin
	s.plugins[plugin.ID] = &clone
	return nil
}

func (s *memPluginRepo) GetByID(_ context.Context, id string) (*domain.Plugin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plugin, ok := s.plugins[id]
	if !ok {
		return nil, domain.ErrPluginNotFound
	}
	clone := *plugin
	return &clone, nil
}

func (s *memPluginRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Plugin], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*domain.Plugin
	for _, p := range s.plugins {
		clone := *p
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return &repository.ListResult[domain.Plugin]{
		Items: items, Total: int64(len(items)), Offset: opts.Offset, Limit: opts.Limit,
	}, nil
}

func (s *memPluginRepo) Update(_ context.Context, id string, update domain.PluginUpdate) (*domain.Plugin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plugin, ok := s.plugins[id]
	if !ok {
		return nil, domain.ErrPluginNotFound
	}
	if update.Name != nil {
		plugin.Name = *update.Name
	}
	if update.Description != nil {
		plugin.Description = *update.Description
	}
	if update.Price != nil {
		plugin.Price = *update.Price
	}
	if update.LogoURL != nil {
		plugin.LogoURL = *update.LogoURL
	}
	if update.FileURL != nil {
		plugin.FileURL = *update.FileURL
	}
	clone := *plugin
	return &clone, nil
}

func (s *memPluginRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[id]; !ok {
		return domain.ErrPluginNotFound
	}
	delete(s.plugins, id)
	return nil
}

func (s *memPluginRepo) IncrementDownloads(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plugin, ok := s.plugins[id]
	if !ok {
		return domain.ErrPluginNotFound
	}
	plugin.Downloads++
	return nil
}

var _ repository.PluginRepository = (*memPluginRepo)(nil)

type memDepositRepo memStore

func (s *memDepositRepo) Create(_ context.Context, deposit *domain.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *deposit
	s.deposits[deposit.ID] = &clone
	return nil
}

func (s *memDepositRepo) GetByID(_ context.Context, id string) (*domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[id]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	clone := *deposit
	return &clone, nil
}

func (s *memDepositRepo) ListByUser(_ context.Context, userID string) ([]*domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposits := []*domain.Deposit{}
	for _, d := range s.deposits {
		if d.UserID == userID {
			clone := *d
			deposits = append(deposits, &clone)
		}
	}
	return deposits, nil
}

func (s *memDepositRepo) ListAll(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Deposit], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deposits []*domain.Deposit
	for _, d := range s.deposits {
		clone := *d
		deposits = append(deposits, &clone)
	}
	return &repository.ListResult[domain.Deposit]{
		Items: deposits, Total: int64(len(deposits)), Offset: opts.Offset, Limit: opts.Limit,
	}, nil
}

func (s *memDepositRepo) Approve(_ context.Context, id string) (*domain.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[id]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	if deposit.IsProcessed() {
		return nil, domain.ErrDepositProcessed
	}
	user, ok := s.users[deposit.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Coins += deposit.Amount
	deposit.Status = domain.DepositApproved
	clone := *deposit
	return &clone, nil
}

func (s *memDepositRepo) Reject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[id]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if deposit.IsProcessed() {
		return domain.ErrDepositProcessed
	}
	deposit.Status = domain.DepositRejected
	return nil
}

var _ repository.DepositRepository = (*memDepositRepo)(nil)

type memSettingsRepo memStore

func (s *memSettingsRepo) Get(_ context.Context) (*domain.PaymentSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return domain.DefaultPaymentSettings(), nil
	}
	clone := *s.settings
	return &clone, nil
}

func (s *memSettingsRepo) Upsert(_ context.Context, settings *domain.PaymentSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *settings
	s.settings = &clone
	return nil
}

var _ repository.SettingsRepository = (*memSettingsRepo)(nil)
