package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ivr-engine/internal/alert"
	"ivr-engine/internal/calllog"
	"ivr-engine/internal/flow"
	"ivr-engine/internal/menu"
	"ivr-engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler is the webhook entry point: it maps inbound event kinds to the
// call-flow components and writes the resulting directive as the response
// body. The engine is stateless per invocation; everything a call carries
// between webhooks lives in the call log.
type Handler struct {
	Menus    menu.Repository
	Dispatch *flow.Dispatcher
	Log      *calllog.Recorder
	Alerts   alert.Notifier

	// RepoTimeout bounds every menu repository read; on expiry the engine
	// fails closed (caller hears "unavailable") rather than hanging.
	RepoTimeout time.Duration

	Now func() time.Time

	handlers map[EventKind]func(*gin.Context, []byte)
}

func NewHandler(menus menu.Repository, dispatch *flow.Dispatcher, log *calllog.Recorder, alerts alert.Notifier, repoTimeout time.Duration) *Handler {
	if alerts == nil {
		alerts = alert.SlogNotifier{}
	}
	if repoTimeout <= 0 {
		repoTimeout = 2 * time.Second
	}
	h := &Handler{
		Menus:       menus,
		Dispatch:    dispatch,
		Log:         log,
		Alerts:      alerts,
		RepoTimeout: repoTimeout,
		Now:         time.Now,
	}
	h.handlers = map[EventKind]func(*gin.Context, []byte){
		EventCallStarted:    h.handleCallStarted,
		EventOptionSelected: h.handleOptionSelected,
		EventCallEnded:      h.handleCallEnded,
	}
	return h
}

type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, apiError{ErrorCode: code, Message: msg})
}

const maxBodyBytes = 64 << 10

// Caller-facing messages for terminal states. Every reject or hangup
// carries one; a human caller is never left with a silent disconnect.
const (
	msgUnavailable  = "The number you have dialed is not available."
	msgOutsideHours = "You have reached us outside of service hours. Please call back later."
)

// HandleEvent decodes the event envelope and routes to the handler
// registered for its kind.
func (h *Handler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "body is not valid JSON")
		return
	}
	handle, ok := h.handlers[env.Event]
	if !ok {
		fail(c, http.StatusBadRequest, "unknown_event", "unsupported event kind")
		return
	}
	handle(c, body)
}

func (h *Handler) handleCallStarted(c *gin.Context, body []byte) {
	log := logger.FromGin(c)

	var ev CallStartedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "malformed call_started payload")
		return
	}
	if err := ev.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	now := h.now()
	m, err := h.loadMenu(c.Request.Context(), func(ctx context.Context) (menu.Menu, error) {
		return h.Menus.GetByNumber(ctx, ev.DialedNumber)
	})
	if err != nil {
		h.rejectUnavailable(c, ev.CallID, ev.DialedNumber, err, log)
		return
	}

	if !m.InService(now) {
		msg := m.OffHoursMessage
		if msg == "" {
			msg = msgOutsideHours
		}
		log.Info("call outside service hours", "call_id", ev.CallID, "menu_id", m.ID)
		c.JSON(http.StatusOK, flow.OutsideHoursDirective{Directive: flow.KindOutsideHours, Message: msg})
		return
	}

	opts, err := h.loadOptions(c.Request.Context(), m.ID)
	if err != nil {
		h.rejectUnavailable(c, ev.CallID, ev.DialedNumber, err, log)
		return
	}

	if _, err := h.Log.Record(c.Request.Context(), ev.CallID, calllog.Update{
		MenuID:          calllog.String(m.ID),
		CallerNumber:    calllog.String(ev.CallerNumber),
		DialedNumber:    calllog.String(ev.DialedNumber),
		InvalidAttempts: calllog.Int(0),
	}); err != nil {
		// Directive still goes out: losing a log row must never drop a
		// live call. The recorder already raised the alert.
		log.Warn("call_started log write failed", "call_id", ev.CallID, "err", err)
	}

	c.JSON(http.StatusOK, flow.Render(m, opts, now))
}

func (h *Handler) handleOptionSelected(c *gin.Context, body []byte) {
	log := logger.FromGin(c)

	var ev OptionSelectedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "malformed option_selected payload")
		return
	}
	if err := ev.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	now := h.now()
	m, err := h.loadMenu(c.Request.Context(), func(ctx context.Context) (menu.Menu, error) {
		return h.Menus.GetByID(ctx, ev.MenuID)
	})
	if err != nil {
		h.menuLoadError(c, ev.CallID, ev.MenuID, err, log)
		return
	}
	opts, err := h.loadOptions(c.Request.Context(), m.ID)
	if err != nil {
		h.menuLoadError(c, ev.CallID, ev.MenuID, err, log)
		return
	}

	prevInvalid := h.storedInvalidCount(c.Request.Context(), ev, log)

	digit, digitOK := ParseDigit(ev.Digit)
	var (
		selected menu.Option
		found    bool
	)
	if digitOK {
		selected, found = flow.Resolve(digit, opts, now)
	}

	if !found {
		h.handleInvalidSelection(c, ev, m, opts, prevInvalid, now, log)
		return
	}

	visited := map[string]struct{}{m.ID: {}}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.RepoTimeout)
	dir, err := h.Dispatch.Dispatch(ctx, selected, visited)
	cancel()
	if err != nil {
		h.dispatchError(c, ev, err, log)
		return
	}

	u := calllog.Update{
		InvalidAttempts: calllog.Int(0),
		AppendSelection: calllog.Int(digit),
	}
	switch selected.Action {
	case menu.ActionSubmenu:
		u.MenuID = calllog.String(selected.TargetMenuID)
	case menu.ActionTransferExt:
		u.TransferredTo = calllog.String(selected.Extension)
	case menu.ActionTransferExternal:
		u.TransferredTo = calllog.String(selected.ExternalNumber)
	}
	if _, err := h.Log.Record(c.Request.Context(), ev.CallID, u); err != nil {
		log.Warn("option_selected log write failed", "call_id", ev.CallID, "err", err)
	}

	c.JSON(http.StatusOK, dir)
}

// handleInvalidSelection runs the bounded-retry policy: re-prompt with the
// invalid-selection message, or fire the menu's fallback once the limit is
// reached.
func (h *Handler) handleInvalidSelection(c *gin.Context, ev OptionSelectedEvent, m menu.Menu, opts []menu.Option, prevInvalid int, now time.Time, log *slog.Logger) {
	out := flow.NextAttempt(m, prevInvalid)

	if out.Fallback {
		log.Info("max invalid attempts exceeded",
			"call_id", ev.CallID, "menu_id", m.ID, "attempts", out.NewCount, "fallback", string(m.Fallback))
		dir := flow.FallbackDirective(m)

		u := calllog.Update{
			InvalidAttempts: calllog.Int(out.NewCount),
			Status:          calllog.StatusOf(calllog.StatusDropped),
		}
		if m.Fallback == menu.FallbackTransfer {
			u.TransferredTo = calllog.String(m.DefaultExtension)
		}
		if _, err := h.Log.Record(c.Request.Context(), ev.CallID, u); err != nil {
			log.Warn("fallback log write failed", "call_id", ev.CallID, "err", err)
		}
		c.JSON(http.StatusOK, dir)
		return
	}

	dir := flow.Render(m, opts, now)
	dir.PreMessage = m.InvalidMessage
	if _, err := h.Log.Record(c.Request.Context(), ev.CallID, calllog.Update{
		InvalidAttempts: calllog.Int(out.NewCount),
	}); err != nil {
		log.Warn("reprompt log write failed", "call_id", ev.CallID, "err", err)
	}
	c.JSON(http.StatusOK, dir)
}

func (h *Handler) handleCallEnded(c *gin.Context, body []byte) {
	log := logger.FromGin(c)

	var ev CallEndedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", "malformed call_ended payload")
		return
	}
	if err := ev.Validate(); err != nil {
		fail(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	status := calllog.StatusCompleted
	if ev.FinalStatus == string(calllog.StatusDropped) {
		status = calllog.StatusDropped
	}
	if _, err := h.Log.Close(c.Request.Context(), ev.CallID, ev.DurationSeconds, ev.RecordingRef, status); err != nil {
		log.Warn("call_ended log write failed", "call_id", ev.CallID, "err", err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// storedInvalidCount prefers the log entry's counter over the one echoed by
// the provider.
func (h *Handler) storedInvalidCount(ctx context.Context, ev OptionSelectedEvent, log *slog.Logger) int {
	e, err := h.Log.Get(ctx, ev.CallID)
	if err == nil {
		return e.InvalidAttempts
	}
	if !errors.Is(err, calllog.ErrNotFound) {
		log.Warn("call log read failed, using echoed counter", "call_id", ev.CallID, "err", err)
	}
	if ev.InvalidAttemptsSoFar < 0 {
		return 0
	}
	return ev.InvalidAttemptsSoFar
}

func (h *Handler) loadMenu(ctx context.Context, load func(context.Context) (menu.Menu, error)) (menu.Menu, error) {
	ctx, cancel := context.WithTimeout(ctx, h.RepoTimeout)
	defer cancel()
	return load(ctx)
}

func (h *Handler) loadOptions(ctx context.Context, menuID string) ([]menu.Option, error) {
	ctx, cancel := context.WithTimeout(ctx, h.RepoTimeout)
	defer cancel()
	return h.Menus.ListOptions(ctx, menuID)
}

// rejectUnavailable is the fail-closed path for call_started: the caller
// hears "unavailable" whether the menu is truly absent or the store timed
// out, but the two are logged and tagged differently.
func (h *Handler) rejectUnavailable(c *gin.Context, callID, dialedNumber string, err error, log *slog.Logger) {
	switch {
	case errors.Is(err, menu.ErrNotFound):
		log.Info("no active menu for number", "call_id", callID, "dialed_number", dialedNumber)
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("menu repository timeout", "call_id", callID, "dialed_number", dialedNumber)
		h.Alerts.Notify(context.WithoutCancel(c.Request.Context()), alert.Event{
			Kind:    alert.KindRepositoryTimeout,
			CallID:  callID,
			Message: "menu lookup timed out during call_started",
		})
		h.tagEntry(c.Request.Context(), callID, "repository_timeout", log)
	default:
		log.Error("menu repository error", "call_id", callID, "err", err)
		h.tagEntry(c.Request.Context(), callID, "repository_error", log)
	}
	c.JSON(http.StatusNotFound, flow.RejectDirective{Directive: flow.KindReject, Message: msgUnavailable})
}

func (h *Handler) tagEntry(ctx context.Context, callID, tag string, log *slog.Logger) {
	if _, err := h.Log.Record(ctx, callID, calllog.Update{LastError: calllog.String(tag)}); err != nil {
		log.Warn("error tag write failed", "call_id", callID, "err", err)
	}
}

func (h *Handler) menuLoadError(c *gin.Context, callID, menuID string, err error, log *slog.Logger) {
	switch {
	case errors.Is(err, menu.ErrNotFound):
		log.Warn("menu referenced by event does not exist", "call_id", callID, "menu_id", menuID)
		fail(c, http.StatusNotFound, "menu_not_found", "menu does not exist")
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("menu repository timeout", "call_id", callID, "menu_id", menuID)
		h.Alerts.Notify(context.WithoutCancel(c.Request.Context()), alert.Event{
			Kind:    alert.KindRepositoryTimeout,
			CallID:  callID,
			Message: "menu lookup timed out during option_selected",
		})
		h.tagEntry(c.Request.Context(), callID, "repository_timeout", log)
		fail(c, http.StatusNotFound, "menu_not_found", "menu lookup failed")
	default:
		log.Error("menu repository error", "call_id", callID, "err", err)
		fail(c, http.StatusInternalServerError, "internal", "menu lookup failed")
	}
}

func (h *Handler) dispatchError(c *gin.Context, ev OptionSelectedEvent, err error, log *slog.Logger) {
	switch {
	case errors.Is(err, flow.ErrMenuCycle):
		log.Error("menu cycle detected", "call_id", ev.CallID, "menu_id", ev.MenuID, "err", err)
		fail(c, http.StatusInternalServerError, "menu_cycle", "menu configuration contains a cycle")
	case errors.Is(err, flow.ErrUnhandledAction):
		log.Error("unhandled action kind", "call_id", ev.CallID, "err", err)
		fail(c, http.StatusInternalServerError, "unhandled_action_kind", "option has an unsupported action kind")
	case errors.Is(err, menu.ErrNotFound):
		log.Error("submenu missing", "call_id", ev.CallID, "err", err)
		fail(c, http.StatusNotFound, "menu_not_found", "submenu does not exist")
	default:
		log.Error("dispatch failed", "call_id", ev.CallID, "err", err)
		fail(c, http.StatusInternalServerError, "internal", "dispatch failed")
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
