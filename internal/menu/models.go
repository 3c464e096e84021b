package menu

import (
	"errors"
	"fmt"
	"time"
)

// Menu is a single call-flow node: a prompt, a digit timeout, and a set of
// selectable options. Menus are authored externally and are read-only to the
// engine; a live call never mutates them.
//
// Invariants enforced by Validate:
// - MaxInvalidAttempts >= 1
// - FallbackTransfer requires a non-empty DefaultExtension

type Menu struct {
	ID          string `json:"id" db:"id"`
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`
	Name        string `json:"name" db:"name"`
	Active      bool   `json:"active" db:"active"`

	WelcomeMessage string      `json:"welcome_message" db:"welcome_message"`
	WelcomeKind    MessageKind `json:"welcome_kind" db:"welcome_kind"`
	// VoiceID selects the text-to-speech voice when WelcomeKind is text.
	VoiceID string `json:"voice_id,omitempty" db:"voice_id"`

	TimeoutSeconds int `json:"timeout_seconds" db:"timeout_seconds"`

	InvalidMessage     string `json:"invalid_message" db:"invalid_message"`
	MaxInvalidAttempts int    `json:"max_invalid_attempts" db:"max_invalid_attempts"`

	Fallback         FallbackAction `json:"fallback" db:"fallback"`
	DefaultExtension string         `json:"default_extension,omitempty" db:"default_extension"`
	// FallbackMessage is spoken before the fallback action fires.
	FallbackMessage string `json:"fallback_message,omitempty" db:"fallback_message"`

	// ServiceWindow restricts when the menu answers at all. Nil means always.
	ServiceWindow   *Window `json:"service_window,omitempty"`
	OffHoursMessage string  `json:"off_hours_message,omitempty" db:"off_hours_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindAudio MessageKind = "audio"
)

// FallbackAction is what happens after the caller exhausts invalid attempts.
type FallbackAction string

const (
	FallbackHangup    FallbackAction = "hangup"
	FallbackTransfer  FallbackAction = "transfer"
	FallbackVoicemail FallbackAction = "voicemail"
)

var ErrInvalidMenu = errors.New("menu: invalid menu")

func (m Menu) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidMenu)
	}
	if m.MaxInvalidAttempts < 1 {
		return fmt.Errorf("%w: max_invalid_attempts must be >= 1", ErrInvalidMenu)
	}
	switch m.Fallback {
	case FallbackHangup, FallbackVoicemail:
	case FallbackTransfer:
		if m.DefaultExtension == "" {
			return fmt.Errorf("%w: fallback transfer requires default_extension", ErrInvalidMenu)
		}
	default:
		return fmt.Errorf("%w: unknown fallback %q", ErrInvalidMenu, m.Fallback)
	}
	switch m.WelcomeKind {
	case MessageKindText, MessageKindAudio:
	default:
		return fmt.Errorf("%w: unknown welcome_kind %q", ErrInvalidMenu, m.WelcomeKind)
	}
	return nil
}

// InService reports whether the menu answers calls at t.
func (m Menu) InService(t time.Time) bool {
	if m.ServiceWindow == nil {
		return true
	}
	return m.ServiceWindow.Contains(t)
}

// ActionKind is the closed set of things an option can do.
type ActionKind string

const (
	ActionSubmenu          ActionKind = "submenu"
	ActionTransferExt      ActionKind = "transfer_extension"
	ActionTransferExternal ActionKind = "transfer_external"
	ActionPlayAudio        ActionKind = "play_audio"
	ActionRequestCallback  ActionKind = "request_callback"
	ActionHangup           ActionKind = "hangup"
	ActionVoicemail        ActionKind = "voicemail"
)

// Option is one selectable branch of a menu.
//
// Digit uniqueness among active options of a menu is enforced by the store
// (partial unique index); Validate covers the per-row invariants.
type Option struct {
	ID     string `json:"id" db:"id"`
	MenuID string `json:"menu_id" db:"menu_id"`

	Digit    int    `json:"digit" db:"digit"`
	Title    string `json:"title" db:"title"`
	Active   bool   `json:"active" db:"active"`
	Position int    `json:"position" db:"position"`

	Action ActionKind `json:"action" db:"action"`

	// Action payloads; which one is required depends on Action.
	TargetMenuID   string `json:"target_menu_id,omitempty" db:"target_menu_id"`
	Extension      string `json:"extension,omitempty" db:"extension"`
	ExternalNumber string `json:"external_number,omitempty" db:"external_number"`
	AudioRef       string `json:"audio_ref,omitempty" db:"audio_ref"`

	PreMessage string `json:"pre_message,omitempty" db:"pre_message"`

	// Window restricts when the option is selectable. Nil means always.
	Window *Window `json:"window,omitempty"`
}

var ErrInvalidOption = errors.New("menu: invalid option")

func (o Option) Validate() error {
	if o.MenuID == "" {
		return fmt.Errorf("%w: menu_id required", ErrInvalidOption)
	}
	if o.Digit < 0 || o.Digit > 9 {
		return fmt.Errorf("%w: digit must be 0-9, got %d", ErrInvalidOption, o.Digit)
	}
	switch o.Action {
	case ActionSubmenu:
		if o.TargetMenuID == "" {
			return fmt.Errorf("%w: submenu requires target_menu_id", ErrInvalidOption)
		}
	case ActionTransferExt:
		if o.Extension == "" {
			return fmt.Errorf("%w: transfer_extension requires extension", ErrInvalidOption)
		}
	case ActionTransferExternal:
		if o.ExternalNumber == "" {
			return fmt.Errorf("%w: transfer_external requires external_number", ErrInvalidOption)
		}
	case ActionPlayAudio:
		if o.AudioRef == "" {
			return fmt.Errorf("%w: play_audio requires audio_ref", ErrInvalidOption)
		}
	case ActionRequestCallback, ActionHangup, ActionVoicemail:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidOption, o.Action)
	}
	return nil
}

// Available reports whether the option is selectable at t.
// Inactive options are never available.
func (o Option) Available(t time.Time) bool {
	if !o.Active {
		return false
	}
	if o.Window == nil {
		return true
	}
	return o.Window.Contains(t)
}
