package flow

import "ivr-engine/internal/menu"

// Directives are what the engine returns to the telephony provider. The
// provider executes them and drives the next webhook. Each carries a
// "directive" discriminator so the provider can switch without inspecting
// shape.
//
// The set is closed; the Action Dispatcher maps menu.ActionKind onto it
// exhaustively.

type DirectiveKind string

const (
	KindPresentMenu  DirectiveKind = "present_menu"
	KindReject       DirectiveKind = "reject"
	KindOutsideHours DirectiveKind = "outside_hours"
	KindTransfer     DirectiveKind = "transfer"
	KindPlayAudio    DirectiveKind = "play_audio"
	KindCallback     DirectiveKind = "request_callback"
	KindHangup       DirectiveKind = "hangup"
	KindVoicemail    DirectiveKind = "voicemail"
)

type Directive interface {
	Kind() DirectiveKind
}

// PresentMenuDirective tells the provider to speak the prompt and gather
// one digit. PreMessage, when set, is spoken first (invalid-selection
// re-prompt or an option's pre-action message).
type PresentMenuDirective struct {
	Directive      DirectiveKind `json:"directive"`
	MenuID         string        `json:"menu_id"`
	PreMessage     string        `json:"pre_message,omitempty"`
	Welcome        Prompt        `json:"welcome"`
	TimeoutSeconds int           `json:"timeout_seconds"`
	Options        []MenuOption  `json:"options"`
}

type Prompt struct {
	Kind     menu.MessageKind `json:"kind"`
	Text     string           `json:"text,omitempty"`
	AudioRef string           `json:"audio_ref,omitempty"`
	Voice    string           `json:"voice,omitempty"`
}

type MenuOption struct {
	Digit  int             `json:"digit"`
	Title  string          `json:"title"`
	Action menu.ActionKind `json:"action"`
}

func (PresentMenuDirective) Kind() DirectiveKind { return KindPresentMenu }

// RejectDirective refuses the call (no active menu for the number).
type RejectDirective struct {
	Directive DirectiveKind `json:"directive"`
	Message   string        `json:"message"`
}

func (RejectDirective) Kind() DirectiveKind { return KindReject }

// OutsideHoursDirective answers with the off-hours message and ends.
type OutsideHoursDirective struct {
	Directive DirectiveKind `json:"directive"`
	Message   string        `json:"message"`
}

func (OutsideHoursDirective) Kind() DirectiveKind { return KindOutsideHours }

type DestinationKind string

const (
	DestinationExtension DestinationKind = "extension"
	DestinationExternal  DestinationKind = "external"
)

type TransferDirective struct {
	Directive       DirectiveKind   `json:"directive"`
	DestinationKind DestinationKind `json:"destination_kind"`
	Destination     string          `json:"destination"`
	PreMessage      string          `json:"pre_message,omitempty"`
	WaitForAnswer   bool            `json:"wait_for_answer"`
}

func (TransferDirective) Kind() DirectiveKind { return KindTransfer }

type PlayAudioDirective struct {
	Directive    DirectiveKind `json:"directive"`
	AudioRef     string        `json:"audio_ref"`
	PreMessage   string        `json:"pre_message,omitempty"`
	ReturnToMenu bool          `json:"return_to_menu"`
}

func (PlayAudioDirective) Kind() DirectiveKind { return KindPlayAudio }

type CallbackDirective struct {
	Directive DirectiveKind `json:"directive"`
	Message   string        `json:"message"`
}

func (CallbackDirective) Kind() DirectiveKind { return KindCallback }

type TerminateDirective struct {
	Directive DirectiveKind `json:"directive"`
	Message   string        `json:"message,omitempty"`
}

func (TerminateDirective) Kind() DirectiveKind { return KindHangup }

type VoicemailDirective struct {
	Directive DirectiveKind `json:"directive"`
	Message   string        `json:"message,omitempty"`
}

func (VoicemailDirective) Kind() DirectiveKind { return KindVoicemail }
