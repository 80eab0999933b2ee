package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/database/testutil"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/services"
	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/store"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/crypto"
)

var (
	primarySecret  = strings.Repeat("p", MinSecretLength)
	previousSecret = strings.Repeat("q", MinSecretLength)
)

type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestSealer(t *testing.T, secrets ...string) *Sealer {
	t.Helper()
	if len(secrets) == 0 {
		secrets = []string{primarySecret}
	}
	sealer, err := NewSealer(secrets, "session", WithArgon2Parameters(crypto.LowCostArgon2Params()))
	require.NoError(t, err)
	return sealer
}

func newTestStore(t *testing.T) store.SessionStore {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	sessions, err := store.NewGormSessionStore(db)
	require.NoError(t, err)
	return sessions
}

// fakeUsers resolves only the registered identifiers.
type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{users: map[string]*models.User{}}
	for _, id := range ids {
		f.add(id)
	}
	return f
}

func (f *fakeUsers) add(id string) {
	f.users[id] = &models.User{BaseModel: models.BaseModel{ID: id}, Email: id + "@example.com", IsActive: true}
}

func (f *fakeUsers) FindUserByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []services.AuditEntry
	err     error
}

func (a *recordingAudit) Log(_ context.Context, entry services.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		out = append(out, entry.Action)
	}
	return out
}

// historyFailingStore fails history reads and delegates everything else.
type historyFailingStore struct {
	store.SessionStore
}

func (historyFailingStore) FindWhere(context.Context, store.Filter) ([]models.Session, error) {
	return nil, errors.New("history read failed")
}

// faultyStore delegates to a real store until broken. A broken store either
// fails every call with err or, when stalling, blocks until the context ends.
type faultyStore struct {
	store.SessionStore
	err     error
	stall   bool
	broken  atomic.Bool
	stalled atomic.Int32
}

func (s *faultyStore) fault(ctx context.Context) error {
	if !s.broken.Load() {
		return nil
	}
	if !s.stall {
		return s.err
	}
	s.stalled.Add(1)
	<-ctx.Done()
	return fmt.Errorf("%w: %w", store.ErrUnavailable, ctx.Err())
}

func (s *faultyStore) Create(ctx context.Context, session *models.Session) error {
	if err := s.fault(ctx); err != nil {
		return err
	}
	return s.SessionStore.Create(ctx, session)
}

func (s *faultyStore) FindByTokenHash(ctx context.Context, hash string, opts store.LookupOptions) (*models.Session, error) {
	if err := s.fault(ctx); err != nil {
		return nil, err
	}
	return s.SessionStore.FindByTokenHash(ctx, hash, opts)
}

func (s *faultyStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if err := s.fault(ctx); err != nil {
		return nil, err
	}
	return s.SessionStore.FindByID(ctx, id)
}

func (s *faultyStore) FindWhere(ctx context.Context, filter store.Filter) ([]models.Session, error) {
	if err := s.fault(ctx); err != nil {
		return nil, err
	}
	return s.SessionStore.FindWhere(ctx, filter)
}

func (s *faultyStore) UpdateFields(ctx context.Context, id string, update store.Update) error {
	if err := s.fault(ctx); err != nil {
		return err
	}
	return s.SessionStore.UpdateFields(ctx, id, update)
}

func (s *faultyStore) UpdateWhere(ctx context.Context, filter store.Filter, update store.Update) (int64, error) {
	if err := s.fault(ctx); err != nil {
		return 0, err
	}
	return s.SessionStore.UpdateWhere(ctx, filter, update)
}

func linuxChrome() DeviceSignal {
	return DeviceSignal{
		Name:      "Linux",
		Browser:   "Chrome",
		OS:        "Linux",
		Type:      models.DeviceTypeDesktop,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
}

func india() LocationSignal {
	return LocationSignal{Country: "IN", IPAddress: "1.2.3.4"}
}

func storedSession(userID string, device DeviceSignal, location LocationSignal, created time.Time) *models.Session {
	return &models.Session{
		BaseModel:      models.BaseModel{CreatedAt: created},
		UserID:         userID,
		TokenHash:      uuid.NewString(),
		Status:         models.SessionStatusActive,
		IsActive:       true,
		ExpiresAt:      created.Add(DefaultSessionDuration),
		LastAccessedAt: created,
		Device:         device.snapshot(),
		Location:       location.snapshot(),
	}
}
