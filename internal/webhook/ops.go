package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ivr-engine/internal/calllog"
	"ivr-engine/internal/flow"
	"ivr-engine/internal/menu"
	"ivr-engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

// OpsHandler serves the read-only configuration and audit endpoints used by
// operators. These are not part of the call-flow protocol and sit behind
// token auth instead of the webhook shared secret.
type OpsHandler struct {
	Menus       flow.MenuLoader
	Log         *calllog.Recorder
	RepoTimeout time.Duration
	Now         func() time.Time
}

func NewOpsHandler(menus flow.MenuLoader, log *calllog.Recorder, repoTimeout time.Duration) *OpsHandler {
	if repoTimeout <= 0 {
		repoTimeout = 5 * time.Second
	}
	return &OpsHandler{Menus: menus, Log: log, RepoTimeout: repoTimeout, Now: time.Now}
}

// MenuTree returns the fully rendered tree under a menu id, for verifying a
// configuration before pointing a number at it.
func (h *OpsHandler) MenuTree(c *gin.Context) {
	log := logger.FromGin(c)
	menuID := c.Param("menu_id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.RepoTimeout)
	defer cancel()

	tree, err := flow.RenderTree(ctx, h.Menus, menuID, h.Now())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, tree)
	case errors.Is(err, menu.ErrNotFound):
		fail(c, http.StatusNotFound, "menu_not_found", "menu does not exist")
	case errors.Is(err, flow.ErrMenuCycle):
		log.Error("menu cycle in configuration", "menu_id", menuID, "err", err)
		fail(c, http.StatusInternalServerError, "menu_cycle", "menu configuration contains a cycle")
	default:
		log.Error("menu tree render failed", "menu_id", menuID, "err", err)
		fail(c, http.StatusInternalServerError, "internal", "menu tree render failed")
	}
}

// GetCall returns a single call's log entry.
func (h *OpsHandler) GetCall(c *gin.Context) {
	callID := c.Param("call_id")

	e, err := h.Log.Get(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, calllog.ErrNotFound) {
			fail(c, http.StatusNotFound, "call_not_found", "no log entry for call")
			return
		}
		logger.FromGin(c).Error("call log read failed", "call_id", callID, "err", err)
		fail(c, http.StatusInternalServerError, "internal", "call log read failed")
		return
	}
	c.JSON(http.StatusOK, e)
}
