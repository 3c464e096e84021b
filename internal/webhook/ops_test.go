package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ivr-engine/internal/alert"
	"ivr-engine/internal/calllog"
	"ivr-engine/internal/menu"

	"github.com/gin-gonic/gin"
)

func newOpsStack(t *testing.T) (*gin.Engine, *menu.MemoryRepo, *calllog.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	menus := menu.NewMemoryRepo()
	logs := calllog.NewMemoryRepo()
	rec := calllog.NewRecorder(logs, alert.SlogNotifier{}, time.Second).WithClock(func() time.Time { return testNow })

	ops := NewOpsHandler(menus, rec, time.Second)
	ops.Now = func() time.Time { return testNow }

	r := gin.New()
	r.GET("/v1/menus/:menu_id/tree", ops.MenuTree)
	r.GET("/v1/calls/:call_id", ops.GetCall)
	return r, menus, logs
}

func opsGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMenuTree(t *testing.T) {
	r, menus, _ := newOpsStack(t)
	m := menu.Menu{
		ID: "root", Active: true, WelcomeMessage: "hi", WelcomeKind: menu.MessageKindText,
		TimeoutSeconds: 5, MaxInvalidAttempts: 3, Fallback: menu.FallbackHangup,
	}
	menus.Put(m, menu.Option{MenuID: "root", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "leaf"})
	leaf := m
	leaf.ID = "leaf"
	menus.Put(leaf, menu.Option{MenuID: "leaf", Digit: 1, Active: true, Action: menu.ActionHangup})

	w := opsGet(t, r, "/v1/menus/root/tree")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode(t, w)
	children, ok := res["children"].(map[string]any)
	if !ok || children["1"] == nil {
		t.Fatalf("expected child under digit 1, got %v", res)
	}
}

func TestMenuTree_Cycle(t *testing.T) {
	r, menus, _ := newOpsStack(t)
	m := menu.Menu{
		ID: "loop", Active: true, WelcomeMessage: "hi", WelcomeKind: menu.MessageKindText,
		TimeoutSeconds: 5, MaxInvalidAttempts: 3, Fallback: menu.FallbackHangup,
	}
	menus.Put(m, menu.Option{MenuID: "loop", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "loop"})

	w := opsGet(t, r, "/v1/menus/loop/tree")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if res := decode(t, w); res["error_code"] != "menu_cycle" {
		t.Fatalf("expected menu_cycle, got %v", res)
	}
}

func TestMenuTree_NotFound(t *testing.T) {
	r, _, _ := newOpsStack(t)
	w := opsGet(t, r, "/v1/menus/ghost/tree")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetCall(t *testing.T) {
	r, _, logs := newOpsStack(t)
	logs.Upsert(context.Background(), "CA1", calllog.Update{MenuID: calllog.String("root")}, testNow)

	w := opsGet(t, r, "/v1/calls/CA1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decode(t, w)
	if res["call_id"] != "CA1" || res["menu_id"] != "root" {
		t.Fatalf("unexpected entry: %v", res)
	}

	w = opsGet(t, r, "/v1/calls/ghost")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown call, got %d", w.Code)
	}
}
