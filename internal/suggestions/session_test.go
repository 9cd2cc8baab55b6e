package suggestions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct{}

func (fakeCredentials) Load(ctx context.Context, userID, provider string) (domain.Credential, error) {
	return domain.Credential{UserID: userID, Provider: provider, AccessToken: "t", RefreshToken: "r"}, nil
}

func (fakeCredentials) Save(ctx context.Context, credential domain.Credential) error { return nil }

func (fakeCredentials) ListExpiring(ctx context.Context, provider string, within time.Duration) ([]domain.Credential, error) {
	return nil, nil
}

type fakeCRM struct {
	searchFn func(query string) ([]domain.Contact, error)
	getFn    func(contactID string) (domain.Contact, error)
	applyFn  func(contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error)
}

func (c *fakeCRM) SearchContacts(ctx context.Context, credential domain.Credential, query string) ([]domain.Contact, error) {
	if c.searchFn == nil {
		return nil, nil
	}
	return c.searchFn(query)
}

func (c *fakeCRM) GetContact(ctx context.Context, credential domain.Credential, contactID string) (domain.Contact, error) {
	if c.getFn == nil {
		return domain.Contact{ID: contactID}, nil
	}
	return c.getFn(contactID)
}

func (c *fakeCRM) UpdateContact(ctx context.Context, credential domain.Credential, contactID string, updates map[string]string) (domain.Contact, error) {
	return domain.Contact{ID: contactID}, nil
}

func (c *fakeCRM) ApplyUpdates(ctx context.Context, credential domain.Credential, contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error) {
	if c.applyFn == nil {
		return domain.ApplyResult{Applied: true, Contact: domain.Contact{ID: contactID}}, nil
	}
	return c.applyFn(contactID, suggestions)
}

type fakeGenerator struct {
	suggestions []domain.Suggestion
	err         error
}

func (g *fakeGenerator) GenerateSuggestions(ctx context.Context, contact domain.Contact, transcript string) ([]domain.Suggestion, error) {
	return g.suggestions, g.err
}

type memorySnapshotStore struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
	saves     int
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: make(map[string]Snapshot)}
}

func (s *memorySnapshotStore) Save(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ID] = snapshot
	s.saves++
	return nil
}

func (s *memorySnapshotStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snapshot, nil
}

func newTestManager(crm *fakeCRM, generator *fakeGenerator, debounce time.Duration) *Manager {
	return NewManager(Dependencies{
		CRM:            crm,
		Generator:      generator,
		Credentials:    fakeCredentials{},
		Snapshots:      newMemorySnapshotStore(),
		SearchDebounce: debounce,
	})
}

func TestInput_DebouncesToSingleSearch(t *testing.T) {
	var mu sync.Mutex
	var queries []string

	crm := &fakeCRM{
		searchFn: func(query string) ([]domain.Contact, error) {
			mu.Lock()
			defer mu.Unlock()
			queries = append(queries, query)
			return []domain.Contact{{ID: "101", DisplayName: "John Doe"}}, nil
		},
	}

	manager := newTestManager(crm, &fakeGenerator{}, 20*time.Millisecond)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	ctx := context.Background()
	require.NoError(t, session.Input(ctx, "j"))
	require.NoError(t, session.Input(ctx, "jo"))
	require.NoError(t, session.Input(ctx, "joh"))

	require.Eventually(t, func() bool {
		return len(session.Snapshot().Results) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"joh"}, queries, "only the last query within the debounce window runs")

	snapshot := session.Snapshot()
	assert.Equal(t, StateSearching, snapshot.State)
	assert.True(t, snapshot.DropdownOpen)
	assert.Equal(t, "joh", snapshot.Query)
}

func TestInput_StaleResponsesDiscarded(t *testing.T) {
	started := make(chan string, 2)
	release := map[string]chan struct{}{
		"a":  make(chan struct{}),
		"ab": make(chan struct{}),
	}
	resultsFor := map[string][]domain.Contact{
		"a":  {{ID: "old", DisplayName: "Old Result"}},
		"ab": {{ID: "new", DisplayName: "New Result"}},
	}

	crm := &fakeCRM{
		searchFn: func(query string) ([]domain.Contact, error) {
			started <- query
			<-release[query]
			return resultsFor[query], nil
		},
	}

	manager := newTestManager(crm, &fakeGenerator{}, time.Millisecond)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	ctx := context.Background()
	require.NoError(t, session.Input(ctx, "a"))
	require.Equal(t, "a", <-started)

	require.NoError(t, session.Input(ctx, "ab"))
	require.Equal(t, "ab", <-started)

	// The newer search completes first.
	close(release["ab"])
	require.Eventually(t, func() bool {
		results := session.Snapshot().Results
		return len(results) == 1 && results[0].ID == "new"
	}, time.Second, 5*time.Millisecond)

	// The older search completes afterwards; its response must be dropped.
	close(release["a"])
	time.Sleep(50 * time.Millisecond)

	results := session.Snapshot().Results
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].ID, "a stale response must not overwrite newer results")
}

func TestSelect_GeneratesSuggestionsAndClearsSearch(t *testing.T) {
	crm := &fakeCRM{
		getFn: func(contactID string) (domain.Contact, error) {
			return domain.Contact{ID: contactID, DisplayName: "John Doe"}, nil
		},
	}
	generator := &fakeGenerator{
		suggestions: []domain.Suggestion{
			{Field: "jobtitle", Label: "Job Title", CurrentValue: "VP", NewValue: "CTO"},
			{Field: "company", Label: "Company", NewValue: "Acme"},
		},
	}

	manager := newTestManager(crm, generator, time.Hour)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	ctx := context.Background()
	require.NoError(t, session.Input(ctx, "john"))
	require.NoError(t, session.Select(ctx, "101"))

	snapshot := session.Snapshot()
	assert.Equal(t, StateSuggestionsReady, snapshot.State)
	assert.Equal(t, "", snapshot.Query, "selection clears search state")
	assert.Empty(t, snapshot.Results)
	assert.False(t, snapshot.DropdownOpen)
	require.NotNil(t, snapshot.Selected)
	assert.Equal(t, "101", snapshot.Selected.ID)
	require.Len(t, snapshot.Suggestions, 2)
	assert.False(t, snapshot.Suggestions[0].Apply, "suggestions start deselected")
}

func TestSelect_GenerationFailure(t *testing.T) {
	generator := &fakeGenerator{err: fmt.Errorf("model unavailable")}

	manager := newTestManager(&fakeCRM{}, generator, time.Hour)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	err := session.Select(context.Background(), "101")
	require.Error(t, err)

	snapshot := session.Snapshot()
	assert.Equal(t, StateFailure, snapshot.State)
	assert.Contains(t, snapshot.Error, "model unavailable")
}

func selectReadySession(t *testing.T, crm *fakeCRM) *Session {
	t.Helper()

	generator := &fakeGenerator{
		suggestions: []domain.Suggestion{
			{Field: "jobtitle", Label: "Job Title", NewValue: "CTO"},
			{Field: "company", Label: "Company", NewValue: "Acme"},
		},
	}

	manager := newTestManager(crm, generator, time.Hour)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")
	require.NoError(t, session.Select(context.Background(), "101"))

	return session
}

func TestToggle(t *testing.T) {
	session := selectReadySession(t, &fakeCRM{})
	ctx := context.Background()

	require.NoError(t, session.Toggle(ctx, "jobtitle", true))
	assert.True(t, session.Snapshot().Suggestions[0].Apply)

	require.NoError(t, session.Toggle(ctx, "jobtitle", false))
	assert.False(t, session.Snapshot().Suggestions[0].Apply)

	assert.ErrorIs(t, session.Toggle(ctx, "website", true), ErrUnknownField)
}

func TestSubmit_RequiresSelection(t *testing.T) {
	applied := false
	crm := &fakeCRM{
		applyFn: func(contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error) {
			applied = true
			return domain.ApplyResult{}, nil
		},
	}

	session := selectReadySession(t, crm)

	err := session.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoSelection)
	assert.False(t, applied, "no batched call while zero suggestions are selected")
	assert.Equal(t, StateSuggestionsReady, session.Snapshot().State)
}

func TestSubmit_Success(t *testing.T) {
	var got []domain.Suggestion
	crm := &fakeCRM{
		applyFn: func(contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error) {
			got = suggestions
			return domain.ApplyResult{Applied: true, Contact: domain.Contact{ID: contactID, DisplayName: "John Doe"}}, nil
		},
	}

	session := selectReadySession(t, crm)
	ctx := context.Background()

	require.NoError(t, session.Toggle(ctx, "jobtitle", true))
	require.NoError(t, session.Submit(ctx))

	require.Len(t, got, 2, "the full suggestion list is submitted as one batch")
	assert.True(t, got[0].Apply)
	assert.False(t, got[1].Apply)

	snapshot := session.Snapshot()
	assert.Equal(t, StateSuccess, snapshot.State)
	assert.Equal(t, []string{"jobtitle"}, snapshot.UpdatedFields)
	require.NotNil(t, snapshot.UpdatedAt)
	assert.Empty(t, snapshot.Suggestions)
}

func TestSubmit_FailureKeepsSelectionsForRetry(t *testing.T) {
	fail := true
	crm := &fakeCRM{
		applyFn: func(contactID string, suggestions []domain.Suggestion) (domain.ApplyResult, error) {
			if fail {
				return domain.ApplyResult{}, fmt.Errorf("token refresh: %w", domain.ErrReauthRequired)
			}
			return domain.ApplyResult{Applied: true, Contact: domain.Contact{ID: contactID}}, nil
		},
	}

	session := selectReadySession(t, crm)
	ctx := context.Background()

	require.NoError(t, session.Toggle(ctx, "jobtitle", true))

	err := session.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrReauthRequired)

	snapshot := session.Snapshot()
	assert.Equal(t, StateFailure, snapshot.State)
	assert.True(t, snapshot.ReauthRequired, "reauth must be distinguishable at the UI boundary")
	require.Len(t, snapshot.Suggestions, 2, "failure keeps the user's selections")
	assert.True(t, snapshot.Suggestions[0].Apply)

	fail = false
	require.NoError(t, session.Submit(ctx), "retry after failure succeeds with the kept selections")
	assert.Equal(t, StateSuccess, session.Snapshot().State)
}

func TestDismiss_ClosesDropdownOnly(t *testing.T) {
	manager := newTestManager(&fakeCRM{}, &fakeGenerator{}, time.Hour)
	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	ctx := context.Background()
	require.NoError(t, session.Input(ctx, "john"))

	before := session.Snapshot()
	require.True(t, before.DropdownOpen)

	session.Dismiss(ctx)

	after := session.Snapshot()
	assert.False(t, after.DropdownOpen)
	assert.Equal(t, before.Query, after.Query)
	assert.Equal(t, before.Selected, after.Selected)
	assert.Equal(t, before.Suggestions, after.Suggestions)
}

func TestManager_PersistsSnapshots(t *testing.T) {
	store := newMemorySnapshotStore()
	manager := NewManager(Dependencies{
		CRM:            &fakeCRM{},
		Generator:      &fakeGenerator{},
		Credentials:    fakeCredentials{},
		Snapshots:      store,
		SearchDebounce: time.Hour,
	})

	ctx := context.Background()
	session := manager.CreateSession(ctx, "user-1", "transcript")

	loaded, err := store.Load(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, StateNoContact, loaded.State)
	assert.Equal(t, "user-1", loaded.UserID)

	require.NoError(t, session.Input(ctx, "john"))

	loaded, err = store.Load(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, StateSearching, loaded.State)

	_, ok := manager.GetSession(session.ID())
	assert.True(t, ok)
	_, ok = manager.GetSession("missing")
	assert.False(t, ok)
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	manager := NewManager(Dependencies{
		CRM:         &fakeCRM{},
		Generator:   &fakeGenerator{},
		Credentials: fakeCredentials{},
		SessionTTL:  time.Hour,
	})

	ctx := context.Background()
	idle := manager.CreateSession(ctx, "user-1", "transcript")
	fresh := manager.CreateSession(ctx, "user-1", "transcript")

	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()

	_, ok := manager.GetSession(idle.ID())
	assert.False(t, ok, "idle session must be gone after its TTL")

	_, ok = manager.GetSession(fresh.ID())
	assert.True(t, ok)

	manager.mu.Lock()
	assert.Len(t, manager.sessions, 1)
	manager.mu.Unlock()
}

func TestManager_GetSessionExtendsLifetime(t *testing.T) {
	manager := NewManager(Dependencies{
		CRM:         &fakeCRM{},
		Generator:   &fakeGenerator{},
		Credentials: fakeCredentials{},
		SessionTTL:  time.Hour,
	})

	session := manager.CreateSession(context.Background(), "user-1", "transcript")

	session.mu.Lock()
	session.lastActive = time.Now().Add(-30 * time.Minute)
	session.mu.Unlock()

	_, ok := manager.GetSession(session.ID())
	require.True(t, ok)

	assert.WithinDuration(t, time.Now(), session.lastActiveTime(), time.Second,
		"a lookup counts as activity")
}
