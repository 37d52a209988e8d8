// Package callcontrols derives the in-call control bar from the participant's
// state and capabilities. The bar owns no call state: it renders what it is
// given and posts actions back.
package callcontrols

// SizeTier classifies the viewport into three discrete layout sizes. Touch
// targets grow on smaller devices, where fingers replace pointers.
type SizeTier int

const (
	TierCompact SizeTier = iota
	TierMedium
	TierFull
)

// Breakpoints between the tiers, in CSS pixels.
const (
	mediumMinWidth = 640
	fullMinWidth   = 1024
)

// TierFor classifies a viewport width. Widths come in through the
// Sec-CH-Viewport-Width client hint; zero or negative widths (hint absent)
// classify as compact so touch targets stay large when nothing is known.
func TierFor(width int) SizeTier {
	switch {
	case width >= fullMinWidth:
		return TierFull
	case width >= mediumMinWidth:
		return TierMedium
	default:
		return TierCompact
	}
}

func (t SizeTier) String() string {
	switch t {
	case TierMedium:
		return "medium"
	case TierFull:
		return "full"
	default:
		return "compact"
	}
}

// TouchTarget returns the minimum touch-target edge in CSS pixels for the tier.
func (t SizeTier) TouchTarget() int {
	switch t {
	case TierMedium:
		return 48
	case TierFull:
		return 56
	default:
		return 44
	}
}

// Action identifies a control bar action. The values double as URL path
// segments for POST /calls/{callID}/controls/{action}.
type Action string

const (
	ToggleMute  Action = "toggle-mute"
	ToggleVideo Action = "toggle-video"
	ShareScreen Action = "share-screen"
	EndCall     Action = "end-call"
	More        Action = "more"
)

// CapabilitySet is the set of actions the participant can perform. A control
// is rendered when and only when its capability is present: no capability, no
// affordance, never a disabled ghost. EndCall needs no capability, ending a
// call is always possible.
type CapabilitySet map[Action]bool

func NewCapabilitySet(actions ...Action) CapabilitySet {
	set := make(CapabilitySet, len(actions))
	for _, action := range actions {
		set[action] = true
	}
	return set
}

func (s CapabilitySet) Has(action Action) bool {
	return s[action]
}

// Config is the input to the control bar: current flags plus capabilities.
type Config struct {
	Muted         bool
	VideoOff      bool
	ScreenSharing bool
	Capabilities  CapabilitySet
}

// Control is one rendered control.
type Control struct {
	Action Action
	Label  string
	// Pressed marks toggles that are currently active, for aria-pressed.
	Pressed bool
	// Danger marks the control rendered in the destructive style.
	Danger bool
}

// Controls returns the control bar contents in render order. EndCall is always
// present and fires immediately, with no confirmation step.
func Controls(cfg Config) []Control {
	var controls []Control

	if cfg.Capabilities.Has(ToggleMute) {
		label := "Mute"
		if cfg.Muted {
			label = "Unmute"
		}
		controls = append(controls, Control{Action: ToggleMute, Label: label, Pressed: cfg.Muted})
	}
	if cfg.Capabilities.Has(ToggleVideo) {
		label := "Stop video"
		if cfg.VideoOff {
			label = "Start video"
		}
		controls = append(controls, Control{Action: ToggleVideo, Label: label, Pressed: cfg.VideoOff})
	}
	if cfg.Capabilities.Has(ShareScreen) {
		label := "Share screen"
		if cfg.ScreenSharing {
			label = "Stop sharing"
		}
		controls = append(controls, Control{Action: ShareScreen, Label: label, Pressed: cfg.ScreenSharing})
	}

	controls = append(controls, Control{Action: EndCall, Label: "End call", Danger: true})

	if cfg.Capabilities.Has(More) {
		controls = append(controls, Control{Action: More, Label: "More"})
	}

	return controls
}
