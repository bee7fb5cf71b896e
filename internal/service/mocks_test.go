package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/storage"
)

// errBoom simulates infrastructure failures in mocks.
var errBoom = errors.New("boom")

// mockUserRepo is an in-memory UserRepository with the same transactional
// semantics as the real backends.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User

	failAll bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errBoom
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	clone.Purchases = append([]string{}, user.Purchases...)
	return &clone, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	var items []*domain.User
	for _, u := range m.users {
		clone := *u
		items = append(items, &clone)
	}
	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return false, errBoom
	}
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return false, errBoom
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.IsAdmin = isAdmin
	return nil
}

func (m *mockUserRepo) AdjustCoins(_ context.Context, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Coins+delta < 0 {
		return domain.ErrInsufficientFunds
	}
	user.Coins += delta
	return nil
}

func (m *mockUserRepo) AddPurchase(_ context.Context, userID, pluginID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
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

func (m *mockUserRepo) Purchase(_ context.Context, userID, pluginID string, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errBoom
	}
	user, ok := m.users[userID]
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

var _ repository.UserRepository = (*mockUserRepo)(nil)

// mockPluginRepo is an in-memory PluginRepository.
type mockPluginRepo struct {
	mu      sync.Mutex
	plugins map[string]*domain.Plugin

	failAll        bool
	failIncrements bool
}

func newMockPluginRepo() *mockPluginRepo {
	return &mockPluginRepo{plugins: make(map[string]*domain.Plugin)}
}

func (m *mockPluginRepo) Create(_ context.Context, plugin *domain.Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errBoom
	}
	clone := *plugin
	m.plugins[plugin.ID] = &clone
	return nil
}

func (m *mockPluginRepo) GetByID(_ context.Context, id string) (*domain.Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	plugin, ok := m.plugins[id]
	if !ok {
		return nil, domain.ErrPluginNotFound
	}
	clone := *plugin
	return &clone, nil
}

func (m *mockPluginRepo) List(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Plugin], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	var items []*domain.Plugin
	for _, p := range m.plugins {
		clone := *p
		items = append(items, &clone)
	}
	return &repository.ListResult[domain.Plugin]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockPluginRepo) Update(_ context.Context, id string, update domain.PluginUpdate) (*domain.Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plugin, ok := m.plugins[id]
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

func (m *mockPluginRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plugins[id]; !ok {
		return domain.ErrPluginNotFound
	}
	delete(m.plugins, id)
	return nil
}

func (m *mockPluginRepo) IncrementDownloads(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrements {
		return errBoom
	}
	plugin, ok := m.plugins[id]
	if !ok {
		return domain.ErrPluginNotFound
	}
	plugin.Downloads++
	return nil
}

var _ repository.PluginRepository = (*mockPluginRepo)(nil)

// mockDepositRepo is an in-memory DepositRepository whose Approve credits
// the linked mockUserRepo, mirroring the real single-transaction behavior.
type mockDepositRepo struct {
	mu       sync.Mutex
	deposits map[string]*domain.Deposit
	users    *mockUserRepo

	failAll bool
}

func newMockDepositRepo(users *mockUserRepo) *mockDepositRepo {
	return &mockDepositRepo{
		deposits: make(map[string]*domain.Deposit),
		users:    users,
	}
}

func (m *mockDepositRepo) Create(_ context.Context, deposit *domain.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errBoom
	}
	clone := *deposit
	m.deposits[deposit.ID] = &clone
	return nil
}

func (m *mockDepositRepo) GetByID(_ context.Context, id string) (*domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deposit, ok := m.deposits[id]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	clone := *deposit
	return &clone, nil
}

func (m *mockDepositRepo) ListByUser(_ context.Context, userID string) ([]*domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	var deposits []*domain.Deposit
	for _, d := range m.deposits {
		if d.UserID == userID {
			clone := *d
			deposits = append(deposits, &clone)
		}
	}
	return deposits, nil
}

func (m *mockDepositRepo) ListAll(_ context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Deposit], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	var deposits []*domain.Deposit
	for _, d := range m.deposits {
		clone := *d
		deposits = append(deposits, &clone)
	}
	return &repository.ListResult[domain.Deposit]{
		Items:  deposits,
		Total:  int64(len(deposits)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *mockDepositRepo) Approve(ctx context.Context, id string) (*domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errBoom
	}
	deposit, ok := m.deposits[id]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	if deposit.IsProcessed() {
		return nil, domain.ErrDepositProcessed
	}
	if err := m.users.AdjustCoins(ctx, deposit.UserID, deposit.Amount); err != nil {
		return nil, err
	}
	deposit.Status = domain.DepositApproved
	clone := *deposit
	return &clone, nil
}

func (m *mockDepositRepo) Reject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	deposit, ok := m.deposits[id]
	if !ok {
		return domain.ErrDepositNotFound
	}
	if deposit.IsProcessed() {
		return domain.ErrDepositProcessed
	}
	deposit.Status = domain.DepositRejected
	return nil
}

var _ repository.DepositRepository = (*mockDepositRepo)(nil)

// mockSettingsRepo is an in-memory SettingsRepository.
type mockSettingsRepo struct {
	mu       sync.Mutex
	settings *domain.PaymentSettings
}

func (m *mockSettingsRepo) Get(_ context.Context) (*domain.PaymentSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return domain.DefaultPaymentSettings(), nil
	}
	clone := *m.settings
	return &clone, nil
}

func (m *mockSettingsRepo) Upsert(_ context.Context, settings *domain.PaymentSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *settings
	m.settings = &clone
	return nil
}

var _ repository.SettingsRepository = (*mockSettingsRepo)(nil)

// mockBackend is an in-memory storage.Backend recording uploads and deletes.
type mockBackend struct {
	mu      sync.Mutex
	files   map[string][]byte
	deletes []string
	puts    int

	failPut bool
}

func newMockBackend() *mockBackend {
	return &mockBackend{files: make(map[string][]byte)}
}

func (m *mockBackend) Put(_ context.Context, folder, filename string, reader io.Reader, _ int64, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return "", errBoom
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.puts++
	locator := fmt.Sprintf("/api/files/%s/%d_%s", folder, m.puts, filename)
	m.files[locator] = data
	return locator, nil
}

func (m *mockBackend) Get(_ context.Context, locator string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[locator]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Body: io.NopCloser(bytes.NewReader(data)),
		Size: int64(len(data)),
	}, nil
}

func (m *mockBackend) Delete(_ context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, locator)
	m.deletes = append(m.deletes, locator)
	return nil
}

var _ storage.Backend = (*mockBackend)(nil)
