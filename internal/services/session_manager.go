package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// OpenSessionRequest opens a session for one activity.
type OpenSessionRequest struct {
	CourseID   int64                `json:"course_id" validate:"required,gt=0"`
	ActivityID int64                `json:"activity_id" validate:"required,gt=0"`
	Preflight  models.PreflightData `json:"preflight,omitempty"`
}

type managedSession struct {
	controller *SessionController
	answers    *RawFieldBuffer
}

// SessionManager keeps the live sessions of this process, keyed by session
// id. Each session gets its own answer buffer.
type SessionManager struct {
	deps          SessionDeps
	checkInterval time.Duration
	logger        *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewSessionManager takes the collaborators shared by every session.
// deps.Answers is ignored, sessions use their own buffer.
func NewSessionManager(deps SessionDeps, checkInterval time.Duration) *SessionManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SessionManager{
		deps:          deps,
		checkInterval: checkInterval,
		logger:        deps.Logger,
		sessions:      make(map[string]*managedSession),
	}
}

// Open creates a session and starts it. A session whose start failed on
// preflight data stays registered so Start can be retried with more data;
// any other failure disposes it.
func (m *SessionManager) Open(ctx context.Context, req *OpenSessionRequest) (*SessionController, error) {
	answers := NewRawFieldBuffer()
	deps := m.deps
	deps.Answers = answers

	controller := NewSessionController(deps, SessionOptions{
		SessionID:     uuid.NewString(),
		CourseID:      req.CourseID,
		ActivityID:    req.ActivityID,
		CheckInterval: m.checkInterval,
		OnTerminal:    m.forget,
	})

	m.mu.Lock()
	m.sessions[controller.ID()] = &managedSession{controller: controller, answers: answers}
	m.mu.Unlock()

	m.logger.Info("Opening session",
		"session_id", controller.ID(),
		"course_id", req.CourseID,
		"activity_id", req.ActivityID)

	if err := m.start(ctx, controller, req.Preflight); err != nil {
		return controller, err
	}
	return controller, nil
}

// Start retries the start of a registered session.
func (m *SessionManager) Start(ctx context.Context, sessionID string, preflight models.PreflightData) (*SessionController, error) {
	controller, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return controller, m.start(ctx, controller, preflight)
}

func (m *SessionManager) start(ctx context.Context, controller *SessionController, preflight models.PreflightData) error {
	err := controller.Start(ctx, preflight)
	if err == nil || IsValidation(err) || errors.Is(err, ErrAlreadyStarted) {
		return err
	}

	m.logger.Warn("Session start failed, closing session", "session_id", controller.ID(), "error", err)
	m.remove(ctx, controller.ID())
	return err
}

func (m *SessionManager) Get(sessionID string) (*SessionController, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.controller, nil
}

// UpdateAnswers replaces the form state of the session.
func (m *SessionManager) UpdateAnswers(sessionID string, values models.RawFieldValues) error {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.answers.Replace(values)
	return nil
}

// Close disposes the session and forgets it.
func (m *SessionManager) Close(ctx context.Context, sessionID string) error {
	if !m.remove(ctx, sessionID) {
		return ErrSessionNotFound
	}
	return nil
}

func (m *SessionManager) remove(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		session.controller.Dispose(ctx)
	}
	return ok
}

// forget drops a finished or aborted session. The controller already
// disposed itself.
func (m *SessionManager) forget(sessionID string, state SessionState) {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		m.logger.Info("Session ended", "session_id", sessionID, "state", state)
	}
}

// Count returns the number of registered sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown disposes every session.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.controller.Dispose(ctx)
	}
}
