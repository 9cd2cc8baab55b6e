package suggestions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/recaphq/recap/internal/domain"

	"github.com/rs/zerolog/log"
)

// State is the suggestion session's position in its lifecycle.
type State string

const (
	StateNoContact          State = "no_contact_selected"
	StateSearching          State = "searching"
	StateSuggestionsLoading State = "suggestions_loading"
	StateSuggestionsReady   State = "suggestions_ready"
	StateSubmitting         State = "submitting"
	StateSuccess            State = "success"
	StateFailure            State = "failure"
)

var (
	// ErrNoSelection rejects a submit while zero suggestions are selected.
	ErrNoSelection = errors.New("no suggestions selected")

	// ErrBusy rejects events that arrive while a submission is in flight.
	ErrBusy = errors.New("submission in progress")

	// ErrNoContactSelected rejects events that require a selected contact.
	ErrNoContactSelected = errors.New("no contact selected")

	// ErrUnknownField rejects a toggle for a field with no suggestion.
	ErrUnknownField = errors.New("no suggestion for field")
)

const defaultSearchDebounce = 150 * time.Millisecond

// Dependencies are the collaborators shared by all sessions.
type Dependencies struct {
	CRM            domain.CRMClient
	Generator      domain.SuggestionGenerator
	Credentials    domain.CredentialStore
	Snapshots      SnapshotStore
	SearchDebounce time.Duration
	SessionTTL     time.Duration
}

// Session drives the apply-suggested-updates flow for one user and one
// meeting transcript. Search input is debounced and stale search responses
// are discarded; a failed submission keeps the user's selections for retry.
type Session struct {
	deps Dependencies

	mu             sync.Mutex
	id             string
	userID         string
	transcript     string
	state          State
	query          string
	results        []domain.Contact
	dropdownOpen   bool
	searchSeq      uint64
	searchTimer    *time.Timer
	selected       *domain.Contact
	suggestions    []domain.Suggestion
	updatedFields  []string
	updatedAt      time.Time
	lastError      string
	reauthRequired bool
	lastActive     time.Time
}

func newSession(id, userID, transcript string, deps Dependencies) *Session {
	if deps.SearchDebounce <= 0 {
		deps.SearchDebounce = defaultSearchDebounce
	}

	return &Session{
		deps:       deps,
		id:         id,
		userID:     userID,
		transcript: transcript,
		state:      StateNoContact,
		lastActive: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastActiveTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

// Input records a search query change and schedules the debounced search.
// Only the results of the latest scheduled query may reach the session.
func (s *Session) Input(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrBusy
	}

	s.query = query
	s.dropdownOpen = true
	if s.selected == nil {
		s.state = StateSearching
	}

	s.searchSeq++
	seq := s.searchSeq

	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}
	s.searchTimer = time.AfterFunc(s.deps.SearchDebounce, func() {
		s.runSearch(seq, query)
	})

	s.persist(ctx)

	return nil
}

// runSearch executes one debounced search. The result is applied only when
// no newer query has been issued since this one was scheduled.
func (s *Session) runSearch(seq uint64, query string) {
	ctx := context.Background()

	var (
		results []domain.Contact
		err     error
	)

	if query != "" {
		var credential domain.Credential
		credential, err = s.deps.Credentials.Load(ctx, s.userID, domain.ProviderHubSpot)
		if err == nil {
			results, err = s.deps.CRM.SearchContacts(ctx, credential, query)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.searchSeq {
		// A newer query superseded this one; discard.
		return
	}

	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Str("query", query).Msg("Contact search failed")
		s.lastError = err.Error()
		s.reauthRequired = errors.Is(err, domain.ErrReauthRequired)
		s.persist(ctx)
		return
	}

	s.results = results
	s.lastError = ""
	s.persist(ctx)
}

// Select picks a contact from the search results, clears search state and
// generates suggestions against the session transcript.
func (s *Session) Select(ctx context.Context, contactID string) error {
	s.mu.Lock()

	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrBusy
	}

	// Invalidate any in-flight search so its late response is discarded.
	s.searchSeq++
	if s.searchTimer != nil {
		s.searchTimer.Stop()
	}

	s.query = ""
	s.results = nil
	s.dropdownOpen = false
	s.state = StateSuggestionsLoading
	s.suggestions = nil
	s.lastError = ""
	s.persist(ctx)
	s.mu.Unlock()

	credential, err := s.deps.Credentials.Load(ctx, s.userID, domain.ProviderHubSpot)
	if err != nil {
		return s.failSelect(ctx, err)
	}

	contact, err := s.deps.CRM.GetContact(ctx, credential, contactID)
	if err != nil {
		return s.failSelect(ctx, err)
	}

	suggestions, err := s.deps.Generator.GenerateSuggestions(ctx, contact, s.transcript)
	if err != nil {
		return s.failSelect(ctx, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = &contact
	s.suggestions = suggestions
	s.state = StateSuggestionsReady
	s.persist(ctx)

	return nil
}

func (s *Session) failSelect(ctx context.Context, err error) error {
	log.Error().Err(err).Str("session_id", s.id).Msg("Contact selection failed")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailure
	s.lastError = err.Error()
	s.reauthRequired = errors.Is(err, domain.ErrReauthRequired)
	s.persist(ctx)

	return err
}

// Toggle flips one suggestion's apply flag.
func (s *Session) Toggle(ctx context.Context, field string, apply bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrBusy
	}

	for i := range s.suggestions {
		if s.suggestions[i].Field == field {
			s.suggestions[i].Apply = apply
			s.persist(ctx)
			return nil
		}
	}

	return ErrUnknownField
}

// Submit sends the selected suggestions as one batched update. A failure
// keeps the selections so the user can retry.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()

	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoContactSelected
	}

	var fields []string
	for _, suggestion := range s.suggestions {
		if suggestion.Apply {
			fields = append(fields, suggestion.Field)
		}
	}
	if len(fields) == 0 {
		s.mu.Unlock()
		return ErrNoSelection
	}

	contactID := s.selected.ID
	suggestions := make([]domain.Suggestion, len(s.suggestions))
	copy(suggestions, s.suggestions)

	s.state = StateSubmitting
	s.lastError = ""
	s.persist(ctx)
	s.mu.Unlock()

	credential, err := s.deps.Credentials.Load(ctx, s.userID, domain.ProviderHubSpot)
	if err == nil {
		var result domain.ApplyResult
		result, err = s.deps.CRM.ApplyUpdates(ctx, credential, contactID, suggestions)
		if err == nil {
			s.mu.Lock()
			defer s.mu.Unlock()

			s.selected = &result.Contact
			s.suggestions = nil
			s.updatedFields = fields
			s.updatedAt = time.Now().UTC()
			s.state = StateSuccess
			s.persist(ctx)

			return nil
		}
	}

	log.Error().Err(err).Str("session_id", s.id).Str("contact_id", contactID).Msg("Applying suggestions failed")

	s.mu.Lock()
	defer s.mu.Unlock()

	// Selections survive a failure so the user can retry as-is.
	s.state = StateFailure
	s.lastError = err.Error()
	s.reauthRequired = errors.Is(err, domain.ErrReauthRequired)
	s.persist(ctx)

	return err
}

// Dismiss closes the search dropdown without touching the query, the
// selected contact or any apply flag.
func (s *Session) Dismiss(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropdownOpen = false
	s.persist(ctx)
}

// Snapshot is the externally visible session state, also the shape
// persisted to the session store.
type Snapshot struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	State          State               `json:"state"`
	Query          string              `json:"query"`
	Results        []domain.Contact    `json:"results,omitempty"`
	DropdownOpen   bool                `json:"dropdown_open"`
	Selected       *domain.Contact     `json:"selected_contact,omitempty"`
	Suggestions    []domain.Suggestion `json:"suggestions,omitempty"`
	UpdatedFields  []string            `json:"updated_fields,omitempty"`
	UpdatedAt      *time.Time          `json:"updated_at,omitempty"`
	Error          string              `json:"error,omitempty"`
	ReauthRequired bool                `json:"reauth_required,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		ID:             s.id,
		UserID:         s.userID,
		State:          s.state,
		Query:          s.query,
		Results:        append([]domain.Contact(nil), s.results...),
		DropdownOpen:   s.dropdownOpen,
		Suggestions:    append([]domain.Suggestion(nil), s.suggestions...),
		UpdatedFields:  append([]string(nil), s.updatedFields...),
		Error:          s.lastError,
		ReauthRequired: s.reauthRequired,
	}

	if s.selected != nil {
		selected := *s.selected
		snapshot.Selected = &selected
	}
	if !s.updatedAt.IsZero() {
		updatedAt := s.updatedAt
		snapshot.UpdatedAt = &updatedAt
	}

	return snapshot
}

// persist stores the current snapshot. Must be called with the lock held.
// Persistence failures are logged, not surfaced; the in-memory session
// stays authoritative.
func (s *Session) persist(ctx context.Context) {
	s.lastActive = time.Now()

	if s.deps.Snapshots == nil {
		return
	}

	if err := s.deps.Snapshots.Save(ctx, s.snapshotLocked()); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to persist session snapshot")
	}
}
