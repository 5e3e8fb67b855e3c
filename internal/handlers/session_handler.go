package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// ===== REQUEST STRUCTURES =====

type StartSessionRequest struct {
	Preflight models.PreflightData `json:"preflight" validate:"required"`
}

type UpdateAnswersRequest struct {
	Answers models.RawFieldValues `json:"answers" validate:"required"`
}

type ChangePageRequest struct {
	Page      *int `json:"page" validate:"required,page_number"`
	FromMenu  bool `json:"from_menu"`
	FocusSlot int  `json:"focus_slot" validate:"gte=0"`
}

type FinishSessionRequest struct {
	Confirmed bool `json:"confirmed"`
	TimeUp    bool `json:"time_up"`
}

// PreflightRequiredResponse is returned when a session was created but needs
// more preflight data before it can start.
type PreflightRequiredResponse struct {
	Message   string                    `json:"message"`
	SessionID string                    `json:"session_id"`
	Details   services.ValidationErrors `json:"details"`
}

type SessionHandler struct {
	BaseHandler
	manager   *services.SessionManager
	validator *validator.Validator
}

func NewSessionHandler(
	manager *services.SessionManager,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		manager:     manager,
		validator:   validator,
	}
}

// OpenSession creates a session for an activity and starts it
// @Summary Open session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.OpenSessionRequest true "Activity to play"
// @Success 201 {object} services.SessionView
// @Failure 400 {object} PreflightRequiredResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) OpenSession(c *gin.Context) {
	var req services.OpenSessionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	h.LogRequest(c, "Opening session", "course_id", req.CourseID, "activity_id", req.ActivityID)

	controller, err := h.manager.Open(c.Request.Context(), &req)
	if err != nil {
		h.respondStartError(c, controller, err)
		return
	}

	c.JSON(http.StatusCreated, controller.View())
}

// StartSession retries the start of a session with more preflight data
// @Summary Start session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param preflight body StartSessionRequest true "Preflight data"
// @Success 200 {object} services.SessionView
// @Failure 400 {object} PreflightRequiredResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req StartSessionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	h.LogRequest(c, "Starting session")

	controller, err := h.manager.Start(c.Request.Context(), id, req.Preflight)
	if err != nil {
		h.respondStartError(c, controller, err)
		return
	}

	c.JSON(http.StatusOK, controller.View())
}

func (h *SessionHandler) respondStartError(c *gin.Context, controller *services.SessionController, err error) {
	if controller == nil || !services.IsValidation(err) {
		h.handleServiceError(c, err)
		return
	}

	details := services.ValidationErrors{}
	var validationErrors services.ValidationErrors
	var validationError *services.ValidationError
	switch {
	case errors.As(err, &validationErrors):
		details = validationErrors
	case errors.As(err, &validationError):
		details = append(details, *validationError)
	}

	h.LogWarn(c, "Session needs preflight data", "session_id", controller.ID(), "error", err)
	c.JSON(http.StatusBadRequest, PreflightRequiredResponse{
		Message:   "Preflight data required",
		SessionID: controller.ID(),
		Details:   details,
	})
}

// GetSession returns the current view of a session
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	controller, err := h.manager.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, controller.View())
}

// UpdateAnswers replaces the form state the autosave monitor watches
// @Summary Update answers
// @Tags sessions
// @Accept json
// @Param id path string true "Session ID"
// @Param answers body UpdateAnswersRequest true "Raw form fields"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/answers [put]
func (h *SessionHandler) UpdateAnswers(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req UpdateAnswersRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	if err := h.manager.UpdateAnswers(id, req.Answers); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.LogDebug(c, "Answers updated", "fields", len(req.Answers))

	c.Status(http.StatusNoContent)
}

// ChangePage saves the current page and moves to another one
// @Summary Change page
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param page body ChangePageRequest true "Target page, -1 for the summary"
// @Success 200 {object} services.SessionView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/page [post]
func (h *SessionHandler) ChangePage(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req ChangePageRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	controller, err := h.manager.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Changing page", "page", *req.Page, "from_menu", req.FromMenu)

	if err := controller.ChangePage(c.Request.Context(), *req.Page, req.FromMenu, req.FocusSlot); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, controller.View())
}

// FinishSession finishes the attempt
// @Summary Finish attempt
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param finish body FinishSessionRequest false "Confirmation"
// @Success 200 {object} services.SessionView
// @Failure 428 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/finish [post]
func (h *SessionHandler) FinishSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req FinishSessionRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, h.validator, &req) {
		return
	}

	controller, err := h.manager.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Finishing attempt", "confirmed", req.Confirmed, "time_up", req.TimeUp)

	ctx := services.WithConfirmation(c.Request.Context(), req.Confirmed)
	if err := controller.Finish(ctx, !req.TimeUp, req.TimeUp); err != nil {
		h.handleServiceError(c, err)
		return
	}

	// the manager has already forgotten the finished session
	c.JSON(http.StatusOK, controller.View())
}

// CloseSession disposes a session without finishing the attempt
// @Summary Close session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.manager.Close(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Session closed")
	c.Status(http.StatusNoContent)
}
