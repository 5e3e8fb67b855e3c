package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/lock"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/remote"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

type SessionState string

const (
	StateLoading       SessionState = "loading"
	StatePageActive    SessionState = "page_active"
	StateSummaryActive SessionState = "summary_active"
	StateAborted       SessionState = "aborted"
	StateFinished      SessionState = "finished"
)

// SessionDeps are the collaborators of a SessionController.
type SessionDeps struct {
	Client    remote.Client
	Store     repositories.OfflineStore
	Locks     lock.Service
	Sync      SyncCoordinator
	Confirmer Confirmer
	Network   NetworkStatus
	Answers   AnswerSource
	Publisher events.EventPublisher // optional
	Validator *validator.Validator
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

type SessionOptions struct {
	SessionID     string
	CourseID      int64
	ActivityID    int64
	CheckInterval time.Duration

	// OnTerminal, when set, is called once the session finished or aborted.
	OnTerminal func(sessionID string, state SessionState)
}

// SessionView is a point-in-time copy of what a session shows.
type SessionView struct {
	SessionID             string                 `json:"session_id"`
	State                 SessionState           `json:"state"`
	Offline               bool                   `json:"offline"`
	Config                *models.ActivityConfig `json:"config,omitempty"`
	Attempt               *models.Attempt        `json:"attempt,omitempty"`
	Page                  *models.PageContent    `json:"page,omitempty"`
	NextPage              int                    `json:"next_page"`
	PrevPage              int                    `json:"prev_page"`
	FocusSlot             int                    `json:"focus_slot,omitempty"`
	Navigation            []models.Question      `json:"navigation,omitempty"`
	Summary               []models.Question      `json:"summary,omitempty"`
	CanReturn             bool                   `json:"can_return"`
	PreventSubmitMessages []string               `json:"prevent_submit_messages,omitempty"`
	DueDate               *time.Time             `json:"due_date,omitempty"`
	TimeNearlyOver        bool                   `json:"time_nearly_over"`
	Remaining             time.Duration          `json:"remaining"`
	Jumps                 models.JumpTable       `json:"jumps,omitempty"`
	AutosaveError         bool                   `json:"autosave_error"`
}

// SessionController owns the life cycle of one attempt.
//
// Start, ChangePage and Finish are serialized by opMu. Timer callbacks and
// the autosave save path never take opMu; they only touch state under mu.
type SessionController struct {
	deps   SessionDeps
	opts   SessionOptions
	holder string

	resolver  *ModeResolver
	gate      *PreflightGate
	log       *ServiceLogger
	signal    *ErrorSignal
	countdown *Countdown

	opMu sync.Mutex

	mu              sync.Mutex
	state           SessionState
	started         bool
	disposed        bool
	cfg             *models.ActivityConfig
	access          *models.AccessInfo
	attempt         *models.Attempt
	preflight       models.PreflightData
	offline         bool
	fellBack        bool
	page            *models.PageContent
	nextPage        int
	prevPage        int
	focusSlot       int
	navigation      []models.Question
	summary         []models.Question
	preventMessages []string
	jumps           models.JumpTable
	monitor         *AutosaveMonitor
	lockKey         lock.Key
	lockHeld        bool
	unsubscribe     func()
}

func NewSessionController(deps SessionDeps, opts SessionOptions) *SessionController {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Confirmer == nil {
		deps.Confirmer = ContextConfirmer{}
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	c := &SessionController{
		deps:      deps,
		opts:      opts,
		holder:    uuid.NewString(),
		resolver:  NewModeResolver(deps.Store, deps.Network),
		gate:      NewPreflightGate(deps.Client),
		signal:    NewErrorSignal(),
		state:     StateLoading,
		preflight: make(models.PreflightData),
		log: NewServiceLogger(deps.Logger.With("session_id", opts.SessionID), LogConfig{
			Service:   "attempt-engine",
			Component: "session",
		}),
	}
	c.countdown = NewCountdown(deps.Clock, c.timeUp)

	initial := true
	c.unsubscribe = c.signal.Subscribe(func(active bool) {
		if initial {
			initial = false
			return
		}
		c.publishAutosaveError(active)
	})
	return c
}

func (c *SessionController) ID() string { return c.opts.SessionID }

// AutosaveErrors exposes the autosave error state.
func (c *SessionController) AutosaveErrors() *ErrorSignal { return c.signal }

// ===== START =====

// Start opens the session: it resolves the mode, takes the activity lock,
// resolves the attempt and loads its first view. On a preflight error the
// caller may call Start again with more preflight data; the data of every
// call is accumulated.
func (c *SessionController) Start(ctx context.Context, preflight models.PreflightData) (err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	switch {
	case c.disposed:
		c.mu.Unlock()
		return ErrSessionDisposed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	case c.state != StateLoading:
		c.mu.Unlock()
		return ErrSessionNotActive
	}
	c.preflight = c.preflight.Merge(preflight)
	c.mu.Unlock()

	op := c.log.WithOperation(ctx, "start", c.opts.ActivityID)
	defer func() {
		if apperrors.IsContentParse(err) {
			c.abort(ctx)
		}
		op.LogResult(c.attemptID(), err)
	}()

	cfg, err := c.deps.Client.FetchActivityConfig(ctx, c.opts.CourseID, c.opts.ActivityID)
	if err != nil {
		return fmt.Errorf("failed to fetch activity config: %w", err)
	}
	if verr := c.deps.Validator.Validate(cfg); verr != nil {
		return apperrors.NewContentParseError("activity config", []string{verr.Error()}, nil)
	}

	// The lock goes first: a sync pass that begins after this point backs
	// out, and one that began before is waited for.
	key := lock.Key{Component: cfg.Kind.Component(), InstanceID: strconv.FormatInt(cfg.ID, 10)}
	if err := c.deps.Locks.Acquire(ctx, key, c.holder); err != nil {
		return err
	}
	c.mu.Lock()
	c.lockKey = key
	c.lockHeld = true
	disposed := c.disposed
	c.cfg = cfg
	c.mu.Unlock()

	defer func() {
		if err != nil {
			c.releaseLock(context.WithoutCancel(ctx))
		}
	}()
	if disposed {
		return ErrSessionDisposed
	}

	if err := c.deps.Sync.WaitForOngoingSync(ctx, cfg.ID); err != nil {
		return fmt.Errorf("failed waiting for sync: %w", err)
	}

	offline, err := c.resolver.Resolve(ctx, cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.offline = offline
	c.mu.Unlock()

	attempt, err := c.resolveAttempt(ctx, cfg, offline)
	if err != nil {
		return err
	}

	if offline {
		jumps, err := c.deps.Store.GetPossibleJumps(ctx, cfg.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to load possible jumps: %w", err)
		}
		c.mu.Lock()
		c.jumps = jumps
		c.mu.Unlock()
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrSessionDisposed
	}
	c.attempt = attempt
	c.monitor = NewAutosaveMonitor(AutosaveOptions{
		Clock:         c.deps.Clock,
		CheckInterval: c.opts.CheckInterval,
		Period:        time.Duration(cfg.AutosavePeriod) * time.Second,
		Capture:       c.captureAnswers,
		Save:          c.autosave,
		Signal:        c.signal,
		Logger:        c.log.Logger(),
	})
	c.mu.Unlock()

	if err := c.loadNavigation(ctx); err != nil {
		return err
	}

	if !attempt.IsOverdue() && !attempt.FinishedOffline {
		err = c.loadPage(ctx, attempt.CurrentPage)
	} else {
		// Overdue or finished offline attempts only get the summary.
		err = c.loadSummary(ctx)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

func (c *SessionController) resolveAttempt(ctx context.Context, cfg *models.ActivityConfig, offline bool) (*models.Attempt, error) {
	access, err := c.deps.Client.GetAccessInfo(ctx, cfg.ID, offline, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get access info: %w", err)
	}

	attempts, err := c.deps.Client.GetUserAttempts(ctx, cfg.ID, models.AttemptFilter{
		Status:         "all",
		IncludePreview: true,
		Offline:        offline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user attempts: %w", err)
	}

	last := models.LastAttempt(attempts)
	newAttempt := IsNewAttempt(last)
	if !newAttempt {
		stored, err := c.deps.Store.GetAttempt(ctx, last.ID)
		switch {
		case err == nil:
			last.FinishedOffline = last.FinishedOffline || stored.FinishedOffline
		case !repositories.IsNotFoundError(err):
			return nil, fmt.Errorf("failed to load offline attempt: %w", err)
		}
	}

	c.mu.Lock()
	c.access = access
	preflight := c.preflight.Clone()
	c.mu.Unlock()

	attempt, err := c.gate.Check(ctx, PreflightRequest{
		Config:    cfg,
		Access:    access,
		Last:      last,
		Preflight: preflight,
		Offline:   offline,
	})
	if err != nil {
		return nil, err
	}

	if offline && newAttempt {
		if err := c.deps.Store.SaveAttempt(ctx, *attempt); err != nil {
			return nil, fmt.Errorf("failed to store offline attempt: %w", err)
		}
	}
	return attempt, nil
}

// ===== NAVIGATION =====

// ChangePage moves the session to target, a page index or FinishPage for the
// summary. focusSlot, when positive, is the question to bring into view.
func (c *SessionController) ChangePage(ctx context.Context, target int, fromMenu bool, focusSlot int) (err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkActive(); err != nil {
		return err
	}

	c.mu.Lock()
	attempt := *c.attempt
	showingSummary := c.state == StateSummaryActive
	sequential := c.cfg.IsSequential()
	c.mu.Unlock()

	if target < models.FinishPage {
		return apperrors.NewValidationErrorWithRule("page", "page must be a page index or the summary", "page_number", target)
	}
	if target != models.FinishPage && (attempt.IsOverdue() || attempt.FinishedOffline) {
		return ErrNavigationNotAllowed
	}
	if target == attempt.CurrentPage && !showingSummary {
		if focusSlot > 0 {
			c.mu.Lock()
			c.focusSlot = focusSlot
			c.mu.Unlock()
		}
		return nil
	}
	if sequential && fromMenu && target != models.FinishPage {
		return ErrNavigationNotAllowed
	}
	if target == models.FinishPage && showingSummary {
		return nil
	}

	op := c.log.WithOperation(ctx, "change_page", c.opts.ActivityID)
	defer func() { op.LogResult(attempt.ID, err) }()

	if !showingSummary {
		if err := c.processAttempt(ctx); err != nil {
			return err
		}
	}

	monitor := c.getMonitor()
	monitor.Stop()
	monitor.Wait()

	if target == models.FinishPage {
		err = c.loadSummary(ctx)
	} else {
		err = c.loadPage(ctx, target)
	}
	if err != nil {
		if apperrors.IsContentParse(err) {
			c.abort(ctx)
		} else if !showingSummary {
			monitor.Start()
		}
		return err
	}

	if target != models.FinishPage {
		c.mu.Lock()
		c.focusSlot = focusSlot
		c.mu.Unlock()
	}
	return nil
}

func (c *SessionController) loadNavigation(ctx context.Context) error {
	attemptID, preflight, offline := c.requestParams()

	questions, err := c.deps.Client.GetSummary(ctx, attemptID, preflight, offline)
	if err != nil {
		return fmt.Errorf("failed to load navigation: %w", err)
	}
	if err := c.deps.Validator.Question().ValidateSummary(questions); err != nil {
		return err
	}

	c.mu.Lock()
	c.navigation = questions
	c.mu.Unlock()
	return nil
}

func (c *SessionController) loadPage(ctx context.Context, page int) error {
	attemptID, preflight, offline := c.requestParams()

	data, err := c.deps.Client.GetPage(ctx, attemptID, page, preflight, offline)
	if err != nil {
		return err
	}
	if c.isDisposed() {
		return ErrSessionDisposed
	}

	content := data.Page
	content.MarkBlocked()
	if err := c.deps.Validator.Question().ValidatePage(&content); err != nil {
		return err
	}

	c.mu.Lock()
	attempt := *c.attempt
	if data.Attempt.ID != 0 {
		finishedOffline := attempt.FinishedOffline
		attempt = data.Attempt
		attempt.FinishedOffline = attempt.FinishedOffline || finishedOffline
	}
	attempt.CurrentPage = page
	prev := data.PrevPage
	if c.cfg.IsSequential() {
		prev = -1
	}
	c.attempt = &attempt
	c.page = &content
	c.nextPage = data.NextPage
	c.prevPage = prev
	c.focusSlot = 0
	c.summary = nil
	c.preventMessages = nil
	from := c.state
	c.state = StatePageActive
	cfg := c.cfg
	monitor := c.monitor
	c.mu.Unlock()

	c.log.LogStateTransition(ctx, c.opts.ActivityID, from, StatePageActive)

	_ = c.deps.Client.LogPageView(ctx, attempt.ID, page, preflight, offline)

	if attempt.IsInProgress() {
		c.countdown.Arm(attempt.DueDate(cfg))
	}
	monitor.Start()
	return nil
}

func (c *SessionController) loadSummary(ctx context.Context) error {
	attemptID, preflight, offline := c.requestParams()

	questions, err := c.deps.Client.GetSummary(ctx, attemptID, preflight, offline)
	if err != nil {
		return err
	}
	if c.isDisposed() {
		return ErrSessionDisposed
	}
	if err := c.deps.Validator.Question().ValidateSummary(questions); err != nil {
		return err
	}
	messages := c.deps.Validator.Question().PreventSubmitMessages(questions)

	c.mu.Lock()
	c.summary = questions
	c.navigation = questions
	c.preventMessages = messages
	c.page = nil
	c.focusSlot = 0
	from := c.state
	c.state = StateSummaryActive
	c.mu.Unlock()

	c.log.LogStateTransition(ctx, c.opts.ActivityID, from, StateSummaryActive)
	return nil
}

// ===== SAVING =====

// processAttempt saves the answers of the page in view.
func (c *SessionController) processAttempt(ctx context.Context) error {
	answers := c.captureAnswers()
	if err := c.persist(ctx, "save_answers", func(offline bool) error {
		return c.saveAnswers(ctx, answers, offline)
	}); err != nil {
		return err
	}

	c.getMonitor().SaveSucceeded()

	// The saved answers change the question states shown in the navigation.
	if err := c.loadNavigation(ctx); err != nil {
		c.log.Logger().Debug("Failed to refresh navigation", "error", err)
	}
	return nil
}

func (c *SessionController) autosave(ctx context.Context, answers models.AnswerSnapshot) error {
	if c.isDisposed() {
		return nil
	}
	return c.persist(ctx, "autosave", func(offline bool) error {
		return c.saveAnswers(ctx, answers, offline)
	})
}

func (c *SessionController) saveAnswers(ctx context.Context, answers models.AnswerSnapshot, offline bool) error {
	attemptID, preflight, _ := c.requestParams()
	if offline {
		if err := c.deps.Store.QueueAnswers(ctx, c.opts.ActivityID, attemptID, answers); err != nil {
			return fmt.Errorf("failed to queue answers: %w", err)
		}
	}
	return c.deps.Client.SaveAnswers(ctx, attemptID, answers, preflight, offline)
}

// persist runs call in the current mode. When an online call cannot reach the
// server the session switches to offline mode, once, and call is retried
// offline.
func (c *SessionController) persist(ctx context.Context, operation string, call func(offline bool) error) error {
	c.mu.Lock()
	offline := c.offline
	c.mu.Unlock()

	err := call(offline)
	if err == nil || offline || !apperrors.IsTransport(err) {
		return err
	}
	if !c.switchToOffline(ctx, operation, err) {
		return err
	}
	return call(true)
}

// switchToOffline reports whether the session is offline afterwards.
func (c *SessionController) switchToOffline(ctx context.Context, operation string, cause error) bool {
	c.mu.Lock()
	if c.offline {
		c.mu.Unlock()
		return true
	}
	if c.fellBack || !c.cfg.OfflineCapable || c.cfg.Review {
		c.mu.Unlock()
		return false
	}
	c.fellBack = true
	c.offline = true
	attempt := *c.attempt
	activityID := c.cfg.ID
	c.mu.Unlock()

	logger := c.log.Logger()
	logger.Warn("Switching to offline mode", "operation", operation, "attempt_id", attempt.ID, "error", cause)

	jumps, err := c.deps.Store.GetPossibleJumps(ctx, activityID)
	if err != nil && !repositories.IsNotFoundError(err) {
		logger.Error("Failed to load possible jumps", "error", err)
	}
	if jumps != nil {
		c.mu.Lock()
		c.jumps = jumps
		c.mu.Unlock()
	}

	if err := c.deps.Store.SaveAttempt(ctx, attempt); err != nil {
		logger.Error("Failed to store offline attempt", "attempt_id", attempt.ID, "error", err)
	}

	c.publish(ctx, events.NewOfflineFallbackEvent(c.opts.SessionID, activityID, attempt.ID, operation, cause))
	return true
}

// ===== FINISH =====

// Finish submits the attempt. A user-initiated finish of an attempt in
// progress needs confirmation from the Confirmer first.
func (c *SessionController) Finish(ctx context.Context, userInitiated, dueToTimeout bool) (err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkActive(); err != nil {
		return err
	}

	c.mu.Lock()
	attempt := *c.attempt
	pageActive := c.state == StatePageActive
	c.mu.Unlock()

	op := c.log.WithOperation(ctx, "finish", c.opts.ActivityID)
	defer func() { op.LogResult(attempt.ID, err) }()

	if userInitiated && !dueToTimeout && attempt.IsInProgress() {
		confirmed, err := c.deps.Confirmer.Confirm(ctx, ConfirmRequest{
			ActivityID: c.opts.ActivityID,
			AttemptID:  attempt.ID,
			Message:    "Once you submit, you will no longer be able to change your answers for this attempt.",
		})
		if err != nil {
			return fmt.Errorf("failed to confirm finish: %w", err)
		}
		if !confirmed {
			return ErrFinishNotConfirmed
		}
	}

	answers := c.captureAnswers()
	monitor := c.getMonitor()
	monitor.Stop()
	monitor.Wait()

	var finished models.Attempt
	err = c.persist(ctx, "finish", func(offline bool) error {
		attemptID, preflight, _ := c.requestParams()
		if offline {
			if err := c.deps.Store.QueueAnswers(ctx, c.opts.ActivityID, attemptID, answers); err != nil {
				return fmt.Errorf("failed to queue answers: %w", err)
			}
		}
		if err := c.deps.Client.FinishAttempt(ctx, attemptID, answers, preflight, userInitiated, dueToTimeout, offline); err != nil {
			return err
		}

		finished = c.finishedAttempt(offline)
		if offline {
			return c.deps.Store.SaveAttempt(ctx, finished)
		}
		return nil
	})
	if err != nil {
		if pageActive {
			monitor.Start()
		}
		return err
	}

	c.mu.Lock()
	c.attempt = &finished
	offline := c.offline
	from := c.state
	c.state = StateFinished
	c.mu.Unlock()

	c.log.LogStateTransition(ctx, c.opts.ActivityID, from, StateFinished)
	monitor.SaveSucceeded()
	c.publish(ctx, events.NewAttemptFinishedEvent(c.opts.SessionID, c.opts.ActivityID, finished.ID, !offline))

	c.Dispose(context.WithoutCancel(ctx))
	c.notifyTerminal(StateFinished)
	return nil
}

func (c *SessionController) finishedAttempt(offline bool) models.Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempt := *c.attempt
	if attempt.State != models.AttemptAbandoned {
		attempt.State = models.AttemptFinished
	}
	attempt.TimeFinish = c.deps.Clock.Now().Unix()
	if offline {
		attempt.FinishedOffline = true
	}
	return attempt
}

// timeUp is the countdown expiry path.
func (c *SessionController) timeUp() {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			c.log.LogRecovery(ctx, "time_up", r, debug.Stack())
		}
	}()
	if err := c.Finish(ctx, false, true); err != nil && !errors.Is(err, ErrSessionDisposed) {
		c.log.Logger().Error("Failed to finish attempt on time up", "error", err)
	}
}

// ===== DISPOSAL =====

// Dispose stops the timers for good and releases the activity lock. It does
// not wait for requests in flight; their results are dropped.
func (c *SessionController) Dispose(ctx context.Context) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	monitor := c.monitor
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	c.countdown.Close()
	if monitor != nil {
		monitor.Close()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	c.releaseLock(ctx)
}

func (c *SessionController) abort(ctx context.Context) {
	c.mu.Lock()
	from := c.state
	c.state = StateAborted
	c.mu.Unlock()

	c.log.LogStateTransition(ctx, c.opts.ActivityID, from, StateAborted)
	c.Dispose(context.WithoutCancel(ctx))
	c.notifyTerminal(StateAborted)
}

func (c *SessionController) notifyTerminal(state SessionState) {
	if c.opts.OnTerminal != nil {
		c.opts.OnTerminal(c.opts.SessionID, state)
	}
}

func (c *SessionController) releaseLock(ctx context.Context) {
	c.mu.Lock()
	if !c.lockHeld {
		c.mu.Unlock()
		return
	}
	c.lockHeld = false
	key := c.lockKey
	c.mu.Unlock()

	if err := c.deps.Locks.Release(ctx, key, c.holder); err != nil {
		c.log.Logger().Error("Failed to release session lock", "key", key.String(), "error", err)
	}
}

// ===== VIEW =====

func (c *SessionController) View() SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := SessionView{
		SessionID:             c.opts.SessionID,
		State:                 c.state,
		Offline:               c.offline,
		Config:                c.cfg,
		Page:                  c.page,
		NextPage:              c.nextPage,
		PrevPage:              c.prevPage,
		FocusSlot:             c.focusSlot,
		Navigation:            c.navigation,
		Summary:               c.summary,
		PreventSubmitMessages: c.preventMessages,
		Remaining:             c.countdown.Remaining(),
		Jumps:                 c.jumps,
		AutosaveError:         c.signal.Active(),
	}
	if c.attempt != nil {
		attempt := *c.attempt
		view.Attempt = &attempt
		view.CanReturn = c.state == StateSummaryActive && attempt.IsInProgress() && !attempt.FinishedOffline
		if c.cfg != nil {
			if due := attempt.DueDate(c.cfg); !due.IsZero() {
				view.DueDate = &due
			}
			view.TimeNearlyOver = attempt.TimeNearlyOver(c.cfg, c.deps.Clock.Now())
		}
	}
	return view
}

func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ===== HELPERS =====

func (c *SessionController) checkActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrSessionDisposed
	}
	if c.state != StatePageActive && c.state != StateSummaryActive {
		return ErrSessionNotActive
	}
	return nil
}

func (c *SessionController) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *SessionController) attemptID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt == nil {
		return 0
	}
	return c.attempt.ID
}

func (c *SessionController) getMonitor() *AutosaveMonitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor
}

func (c *SessionController) requestParams() (attemptID int64, preflight models.PreflightData, offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != nil {
		attemptID = c.attempt.ID
	}
	return attemptID, c.preflight.Clone(), c.offline
}

// captureAnswers extracts the answers of the page in view. The summary has
// none.
func (c *SessionController) captureAnswers() models.AnswerSnapshot {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	if page == nil || c.deps.Answers == nil {
		return models.AnswerSnapshot{}
	}
	return models.ExtractAnswers(*page, c.deps.Answers.RawAnswers())
}

func (c *SessionController) publish(ctx context.Context, event *events.Event) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.PublishEvent(context.WithoutCancel(ctx), event); err != nil {
		c.log.Logger().Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (c *SessionController) publishAutosaveError(active bool) {
	c.publish(context.Background(), events.NewAutosaveErrorChangedEvent(c.opts.SessionID, c.opts.ActivityID, c.attemptID(), active))
}
