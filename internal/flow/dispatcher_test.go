package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"ivr-engine/internal/menu"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDispatch_Submenu(t *testing.T) {
	repo := menu.NewMemoryRepo()
	sub := mainMenu()
	sub.ID = "sales"
	sub.WelcomeMessage = "Sales. Press 1 for new orders."
	repo.Put(sub,
		menu.Option{MenuID: "sales", Digit: 1, Title: "New orders", Active: true, Action: menu.ActionTransferExt, Extension: "300"},
	)

	d := NewDispatcher(repo)
	d.Now = fixedClock(testNow)

	opt := menu.Option{ID: "o1", MenuID: "main", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "sales", PreMessage: "One moment."}
	visited := map[string]struct{}{"main": {}}

	dir, err := d.Dispatch(context.Background(), opt, visited)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	pm, ok := dir.(PresentMenuDirective)
	if !ok {
		t.Fatalf("expected PresentMenuDirective, got %#v", dir)
	}
	if pm.MenuID != "sales" || pm.PreMessage != "One moment." {
		t.Fatalf("unexpected directive: %+v", pm)
	}
	if len(pm.Options) != 1 || pm.Options[0].Digit != 1 {
		t.Fatalf("expected submenu's own options, got %+v", pm.Options)
	}
}

func TestDispatch_SubmenuCycle(t *testing.T) {
	repo := menu.NewMemoryRepo()
	d := NewDispatcher(repo)
	d.Now = fixedClock(testNow)

	opt := menu.Option{MenuID: "a", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "a"}
	visited := map[string]struct{}{"a": {}}

	_, err := d.Dispatch(context.Background(), opt, visited)
	if !errors.Is(err, ErrMenuCycle) {
		t.Fatalf("expected ErrMenuCycle, got %v", err)
	}
}

func TestDispatch_Transfers(t *testing.T) {
	d := NewDispatcher(menu.NewMemoryRepo())

	dir, err := d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionTransferExt, Extension: "100", PreMessage: "Connecting."}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tr := dir.(TransferDirective)
	if tr.DestinationKind != DestinationExtension || tr.Destination != "100" || !tr.WaitForAnswer || tr.PreMessage != "Connecting." {
		t.Fatalf("unexpected transfer: %+v", tr)
	}

	dir, err = d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionTransferExternal, ExternalNumber: "+15550001111"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tr = dir.(TransferDirective)
	if tr.DestinationKind != DestinationExternal || tr.Destination != "+15550001111" {
		t.Fatalf("unexpected external transfer: %+v", tr)
	}
}

func TestDispatch_PlayAudioReturnsToMenu(t *testing.T) {
	d := NewDispatcher(menu.NewMemoryRepo())

	dir, err := d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionPlayAudio, AudioRef: "hours.wav"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	pa := dir.(PlayAudioDirective)
	if pa.AudioRef != "hours.wav" || !pa.ReturnToMenu {
		t.Fatalf("unexpected play_audio: %+v", pa)
	}
}

func TestDispatch_Terminals(t *testing.T) {
	d := NewDispatcher(menu.NewMemoryRepo())

	dir, _ := d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionHangup, PreMessage: "Goodbye."}, nil)
	if term, ok := dir.(TerminateDirective); !ok || term.Message != "Goodbye." {
		t.Fatalf("unexpected hangup: %#v", dir)
	}

	dir, _ = d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionVoicemail}, nil)
	if _, ok := dir.(VoicemailDirective); !ok {
		t.Fatalf("expected voicemail directive, got %#v", dir)
	}

	dir, _ = d.Dispatch(context.Background(), menu.Option{Active: true, Action: menu.ActionRequestCallback}, nil)
	cb, ok := dir.(CallbackDirective)
	if !ok || cb.Message == "" {
		t.Fatalf("callback directive must carry a message, got %#v", dir)
	}
}

func TestDispatch_UnhandledActionKind(t *testing.T) {
	d := NewDispatcher(menu.NewMemoryRepo())

	_, err := d.Dispatch(context.Background(), menu.Option{ID: "bad", Active: true, Action: "carrier_pigeon"}, nil)
	if !errors.Is(err, ErrUnhandledAction) {
		t.Fatalf("expected ErrUnhandledAction, got %v", err)
	}
}

func TestRenderTree(t *testing.T) {
	repo := menu.NewMemoryRepo()
	root := mainMenu()
	sub := mainMenu()
	sub.ID = "sales"
	repo.Put(root,
		menu.Option{MenuID: "main", Digit: 1, Title: "Sales", Active: true, Action: menu.ActionSubmenu, TargetMenuID: "sales"},
		menu.Option{MenuID: "main", Digit: 2, Title: "Operator", Active: true, Action: menu.ActionTransferExt, Extension: "0"},
	)
	repo.Put(sub,
		menu.Option{MenuID: "sales", Digit: 1, Title: "Orders", Active: true, Action: menu.ActionTransferExt, Extension: "300"},
	)

	tree, err := RenderTree(context.Background(), repo, "main", testNow)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tree.Rendered.Options) != 2 {
		t.Fatalf("expected 2 root options, got %d", len(tree.Rendered.Options))
	}
	child, ok := tree.Children[1]
	if !ok {
		t.Fatalf("expected child under digit 1")
	}
	if child.Rendered.MenuID != "sales" {
		t.Fatalf("unexpected child menu: %+v", child.Rendered)
	}
}

func TestRenderTree_CycleFails(t *testing.T) {
	repo := menu.NewMemoryRepo()
	a := mainMenu()
	a.ID = "a"
	b := mainMenu()
	b.ID = "b"
	repo.Put(a, menu.Option{MenuID: "a", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "b"})
	repo.Put(b, menu.Option{MenuID: "b", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "a"})

	_, err := RenderTree(context.Background(), repo, "a", testNow)
	if !errors.Is(err, ErrMenuCycle) {
		t.Fatalf("expected ErrMenuCycle, got %v", err)
	}
}

func TestRenderTree_SharedSubmenuIsNotACycle(t *testing.T) {
	repo := menu.NewMemoryRepo()
	root := mainMenu()
	shared := mainMenu()
	shared.ID = "shared"
	repo.Put(root,
		menu.Option{MenuID: "main", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "mid1"},
		menu.Option{MenuID: "main", Digit: 2, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "mid2"},
	)
	mid1 := mainMenu()
	mid1.ID = "mid1"
	mid2 := mainMenu()
	mid2.ID = "mid2"
	repo.Put(mid1, menu.Option{MenuID: "mid1", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "shared"})
	repo.Put(mid2, menu.Option{MenuID: "mid2", Digit: 1, Active: true, Action: menu.ActionSubmenu, TargetMenuID: "shared"})
	repo.Put(shared)

	if _, err := RenderTree(context.Background(), repo, "main", testNow); err != nil {
		t.Fatalf("diamond must render, got %v", err)
	}
}
