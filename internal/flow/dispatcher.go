package flow

import (
	"context"
	"fmt"
	"time"

	"ivr-engine/internal/menu"
)

// MenuLoader is the subset of menu.Repository the dispatcher needs to
// recurse into submenus.
type MenuLoader interface {
	GetByID(ctx context.Context, id string) (menu.Menu, error)
	ListOptions(ctx context.Context, menuID string) ([]menu.Option, error)
}

// Dispatcher maps a resolved option to its outbound directive.
type Dispatcher struct {
	Menus MenuLoader
	Now   func() time.Time
}

func NewDispatcher(menus MenuLoader) *Dispatcher {
	return &Dispatcher{Menus: menus, Now: time.Now}
}

// Dispatch is an exhaustive mapping over menu.ActionKind. An unknown kind
// is ErrUnhandledAction: a configuration bug that must fail loudly.
//
// visited holds menu ids already rendered for this call turn; the submenu
// case refuses to re-enter one (ErrMenuCycle) rather than recurse forever
// on a mis-authored cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, opt menu.Option, visited map[string]struct{}) (Directive, error) {
	switch opt.Action {
	case menu.ActionSubmenu:
		return d.renderSubmenu(ctx, opt, visited)

	case menu.ActionTransferExt:
		return TransferDirective{
			Directive:       KindTransfer,
			DestinationKind: DestinationExtension,
			Destination:     opt.Extension,
			PreMessage:      opt.PreMessage,
			WaitForAnswer:   true,
		}, nil

	case menu.ActionTransferExternal:
		return TransferDirective{
			Directive:       KindTransfer,
			DestinationKind: DestinationExternal,
			Destination:     opt.ExternalNumber,
			PreMessage:      opt.PreMessage,
			WaitForAnswer:   true,
		}, nil

	case menu.ActionPlayAudio:
		return PlayAudioDirective{
			Directive:    KindPlayAudio,
			AudioRef:     opt.AudioRef,
			PreMessage:   opt.PreMessage,
			ReturnToMenu: true,
		}, nil

	case menu.ActionRequestCallback:
		msg := opt.PreMessage
		if msg == "" {
			msg = "Please say the number where we should call you back."
		}
		return CallbackDirective{Directive: KindCallback, Message: msg}, nil

	case menu.ActionHangup:
		return TerminateDirective{Directive: KindHangup, Message: opt.PreMessage}, nil

	case menu.ActionVoicemail:
		return VoicemailDirective{Directive: KindVoicemail, Message: opt.PreMessage}, nil

	default:
		return nil, fmt.Errorf("%w: %q (option %s)", ErrUnhandledAction, opt.Action, opt.ID)
	}
}

func (d *Dispatcher) renderSubmenu(ctx context.Context, opt menu.Option, visited map[string]struct{}) (Directive, error) {
	if _, seen := visited[opt.TargetMenuID]; seen {
		return nil, fmt.Errorf("%w: menu %s reachable from itself", ErrMenuCycle, opt.TargetMenuID)
	}
	if visited != nil {
		visited[opt.TargetMenuID] = struct{}{}
	}

	sub, err := d.Menus.GetByID(ctx, opt.TargetMenuID)
	if err != nil {
		return nil, fmt.Errorf("load submenu %s: %w", opt.TargetMenuID, err)
	}
	subOpts, err := d.Menus.ListOptions(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("load submenu %s options: %w", sub.ID, err)
	}

	dir := Render(sub, subOpts, d.now())
	dir.PreMessage = opt.PreMessage
	return dir, nil
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
