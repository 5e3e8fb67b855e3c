package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/lock"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/remote"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errNetwork = apperrors.NewTransportError("save", fmt.Errorf("connection refused"))

// ===== REMOTE CLIENT =====

type saveCall struct {
	AttemptID int64
	Answers   models.AnswerSnapshot
	Offline   bool
}

type finishCall struct {
	AttemptID  int64
	Answers    models.AnswerSnapshot
	UserFinish bool
	TimeUp     bool
	Offline    bool
}

// fakeClient serves generated pages: page n holds one question in slot
// n*10+1 bound to field "q<slot>".
type fakeClient struct {
	mu sync.Mutex

	config   *models.ActivityConfig
	access   *models.AccessInfo
	attempts []models.Attempt
	next     models.Attempt
	pages    map[int]models.PageContent
	summary  []models.Question

	startErr   error
	pageErrs   map[int]error
	summaryErr error
	saveErrs   []error
	finishErrs []error

	// pageHook runs before a page is served, outside the client lock.
	pageHook func(page int)
	// saveGate, when set, holds the next save until it is closed.
	saveGate chan struct{}

	startCalls     []models.PreflightData
	pageCalls      []int
	summaryCalls   int
	saves          []saveCall
	finishes       []finishCall
	pageViews      int
	accessOffline  []bool
	attemptFilters []models.AttemptFilter
}

var _ remote.Client = (*fakeClient)(nil)

func newFakeClient(cfg models.ActivityConfig) *fakeClient {
	return &fakeClient{
		config:   &cfg,
		access:   &models.AccessInfo{CanAttempt: true},
		next:     models.Attempt{ID: 500, ActivityID: cfg.ID, Number: 1, State: models.AttemptInProgress},
		pages:    make(map[int]models.PageContent),
		pageErrs: make(map[int]error),
		summary:  []models.Question{{Slot: 1, Type: "multichoice"}, {Slot: 11, Type: "multichoice"}},
	}
}

func (f *fakeClient) FetchActivityConfig(ctx context.Context, courseID, activityID int64) (*models.ActivityConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := *f.config
	return &cfg, nil
}

func (f *fakeClient) GetAccessInfo(ctx context.Context, activityID int64, offline, ignoreCache bool) (*models.AccessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessOffline = append(f.accessOffline, offline)
	info := *f.access
	return &info, nil
}

func (f *fakeClient) GetUserAttempts(ctx context.Context, activityID int64, filter models.AttemptFilter) ([]models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attemptFilters = append(f.attemptFilters, filter)
	return append([]models.Attempt(nil), f.attempts...), nil
}

func (f *fakeClient) StartAttempt(ctx context.Context, activityID int64, preflight models.PreflightData) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, preflight.Clone())
	if f.startErr != nil {
		return nil, f.startErr
	}
	attempt := f.next
	f.attempts = append(f.attempts, attempt)
	return &attempt, nil
}

func (f *fakeClient) GetPage(ctx context.Context, attemptID int64, page int, preflight models.PreflightData, offline bool) (*models.PageData, error) {
	f.mu.Lock()
	hook := f.pageHook
	f.mu.Unlock()
	if hook != nil {
		hook(page)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, page)
	if err := f.pageErrs[page]; err != nil {
		return nil, err
	}

	content, ok := f.pages[page]
	if !ok {
		slot := page*10 + 1
		content = models.PageContent{
			Number:    page,
			Questions: []models.Question{{Slot: slot, Type: "multichoice", Fields: []string{fmt.Sprintf("q%d", slot)}}},
		}
	}
	attempt := models.Attempt{ID: attemptID, ActivityID: f.config.ID, State: models.AttemptInProgress, CurrentPage: page}
	for _, a := range f.attempts {
		if a.ID == attemptID {
			attempt = a
		}
	}
	return &models.PageData{Attempt: attempt, Page: content, NextPage: page + 1, PrevPage: page - 1}, nil
}

func (f *fakeClient) GetSummary(ctx context.Context, attemptID int64, preflight models.PreflightData, offline bool) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return append([]models.Question(nil), f.summary...), nil
}

func (f *fakeClient) SaveAnswers(ctx context.Context, attemptID int64, answers models.AnswerSnapshot, preflight models.PreflightData, offline bool) error {
	f.mu.Lock()
	f.saves = append(f.saves, saveCall{AttemptID: attemptID, Answers: answers.Clone(), Offline: offline})
	var err error
	if len(f.saveErrs) > 0 {
		err = f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
	}
	gate := f.saveGate
	f.saveGate = nil
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeClient) FinishAttempt(ctx context.Context, attemptID int64, answers models.AnswerSnapshot, preflight models.PreflightData, userFinish, timeUp, offline bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes = append(f.finishes, finishCall{AttemptID: attemptID, Answers: answers.Clone(), UserFinish: userFinish, TimeUp: timeUp, Offline: offline})
	if len(f.finishErrs) > 0 {
		err := f.finishErrs[0]
		f.finishErrs = f.finishErrs[1:]
		return err
	}
	return nil
}

func (f *fakeClient) LogPageView(ctx context.Context, attemptID int64, page int, preflight models.PreflightData, offline bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageViews++
	return apperrors.NewTransportError("log_page_view", fmt.Errorf("ignored"))
}

func (f *fakeClient) savesSnapshot() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]saveCall(nil), f.saves...)
}

func (f *fakeClient) pageCallsSnapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pageCalls...)
}

func (f *fakeClient) finishesSnapshot() []finishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finishCall(nil), f.finishes...)
}

// callCount sums every network call the controller can make after start.
func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pageCalls) + f.summaryCalls + len(f.saves) + len(f.finishes) + f.pageViews
}

// ===== OFFLINE STORE =====

type fakeStore struct {
	mu            sync.Mutex
	hasData       map[int64]bool
	unfinished    map[int64]bool
	finished      map[int64]bool
	jumps         map[int64]models.JumpTable
	queued        map[int64]models.AnswerSnapshot
	attempts      map[int64]models.Attempt
	queueAttempts int
}

var _ repositories.OfflineStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		hasData:    make(map[int64]bool),
		unfinished: make(map[int64]bool),
		finished:   make(map[int64]bool),
		jumps:      make(map[int64]models.JumpTable),
		queued:     make(map[int64]models.AnswerSnapshot),
		attempts:   make(map[int64]models.Attempt),
	}
}

func (s *fakeStore) HasOfflineData(ctx context.Context, activityID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasData[activityID], nil
}

func (s *fakeStore) GetPossibleJumps(ctx context.Context, activityID int64) (models.JumpTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jumps, ok := s.jumps[activityID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return jumps, nil
}

func (s *fakeStore) HasFinishedOfflineAttempt(ctx context.Context, activityID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[activityID], nil
}

func (s *fakeStore) LastAttemptOfflineUnfinished(ctx context.Context, activityID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unfinished[activityID], nil
}

func (s *fakeStore) QueueAnswers(ctx context.Context, activityID, attemptID int64, answers models.AnswerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueAttempts++
	queued := s.queued[attemptID]
	if queued == nil {
		queued = make(models.AnswerSnapshot)
	}
	for k, v := range answers {
		queued[k] = v
	}
	s.queued[attemptID] = queued
	s.hasData[activityID] = true
	return nil
}

func (s *fakeStore) GetQueuedAnswers(ctx context.Context, attemptID int64) (models.AnswerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued[attemptID].Clone(), nil
}

func (s *fakeStore) SaveAttempt(ctx context.Context, attempt models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = attempt
	s.hasData[attempt.ActivityID] = true
	return nil
}

func (s *fakeStore) GetAttempt(ctx context.Context, attemptID int64) (*models.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &attempt, nil
}

func (s *fakeStore) SaveJumps(ctx context.Context, activityID int64, jumps models.JumpTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jumps[activityID] = jumps
	return nil
}

func (s *fakeStore) DeleteActivityData(ctx context.Context, activityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hasData, activityID)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// ===== OTHER COLLABORATORS =====

type noSync struct{}

func (noSync) WaitForOngoingSync(ctx context.Context, activityID int64) error { return nil }

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

type staticNetwork bool

func (n staticNetwork) IsOnline() bool { return bool(n) }

// countingSource counts how often the answers were read.
type countingSource struct {
	*RawFieldBuffer
	reads atomic.Int64
}

func newCountingSource() *countingSource {
	return &countingSource{RawFieldBuffer: NewRawFieldBuffer()}
}

func (s *countingSource) RawAnswers() models.RawFieldValues {
	s.reads.Add(1)
	return s.RawFieldBuffer.RawAnswers()
}

// ===== HARNESS =====

var testEpoch = time.Unix(1_700_000_000, 0)

type harness struct {
	client    *fakeClient
	store     *fakeStore
	locks     *lock.MemoryService
	clock     *clockwork.FakeClock
	publisher *events.MockEventPublisher
	answers   *countingSource
	confirmer *mockConfirmer
	network   staticNetwork
}

func quizConfig() models.ActivityConfig {
	return models.ActivityConfig{
		ID:             42,
		CourseID:       7,
		Kind:           models.KindQuiz,
		Name:           "Weekly quiz",
		NavigationMode: models.NavigationFree,
	}
}

func newHarness(t *testing.T, cfg models.ActivityConfig) *harness {
	t.Helper()
	return &harness{
		client:    newFakeClient(cfg),
		store:     newFakeStore(),
		locks:     lock.NewMemoryService(),
		clock:     clockwork.NewFakeClockAt(testEpoch),
		publisher: events.NewMockEventPublisher(testLogger()),
		answers:   newCountingSource(),
		confirmer: &mockConfirmer{},
		network:   true,
	}
}

func (h *harness) deps() SessionDeps {
	return SessionDeps{
		Client:    h.client,
		Store:     h.store,
		Locks:     h.locks,
		Sync:      noSync{},
		Confirmer: h.confirmer,
		Network:   h.network,
		Answers:   h.answers,
		Publisher: h.publisher,
		Validator: validator.New(),
		Clock:     h.clock,
		Logger:    testLogger(),
	}
}

func (h *harness) controller(t *testing.T) *SessionController {
	t.Helper()
	c := NewSessionController(h.deps(), SessionOptions{
		SessionID:     "session-1",
		CourseID:      7,
		ActivityID:    42,
		CheckInterval: time.Second,
	})
	t.Cleanup(func() { c.Dispose(context.Background()) })
	return c
}

func (h *harness) lockHeld(t *testing.T) bool {
	t.Helper()
	held, err := h.locks.IsHeld(context.Background(), lock.Key{Component: "mod_quiz", InstanceID: "42"})
	if err != nil {
		t.Fatalf("IsHeld: %v", err)
	}
	return held
}
