// Package permissions tracks the camera and microphone grant outcomes
// collected on the onboarding permissions step.
package permissions

import (
	"context"

	"github.com/acetime/acetime/internal/errors"
)

// Grant is the tri-state outcome of a capability request. A denial is a
// determined outcome, not an error.
type Grant int

const (
	Unknown Grant = iota
	Granted
	Denied
)

func (g Grant) String() string {
	switch g {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

func (g Grant) Determined() bool {
	return g != Unknown
}

var ErrUnknownGrant = errors.NewSentinel("unknown grant value")

// ParseGrant decodes the string form posted by the browser shim.
func ParseGrant(s string) (Grant, error) {
	switch s {
	case "granted":
		return Granted, nil
	case "denied":
		return Denied, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, errors.Wrap(ErrUnknownGrant, s)
}

// State holds both device outcomes for one permissions screen.
type State struct {
	Camera     Grant
	Microphone Grant
}

// Determined reports whether both outcomes are settled. The continue
// affordance keys on this alone: a user who denied both devices may proceed.
func (s State) Determined() bool {
	return s.Camera.Determined() && s.Microphone.Determined()
}

// Stream is a live device capture handle.
type Stream interface {
	Stop()
}

// Authorizer requests device access from the platform. Implementations return
// an error when the user denies access or the device is unavailable.
type Authorizer interface {
	RequestCamera(ctx context.Context) (Stream, error)
	RequestMicrophone(ctx context.Context) (Stream, error)
}

// Request asks for camera access and then microphone access. The requests are
// sequential and independently caught: a denial of one never blocks asking for
// the other. Acquired streams are stopped immediately, the screen only needs
// the grant outcome, never a live capture.
func Request(ctx context.Context, authorizer Authorizer) State {
	state := State{Camera: Denied, Microphone: Denied}

	if stream, err := authorizer.RequestCamera(ctx); err == nil {
		stream.Stop()
		state.Camera = Granted
	}
	if stream, err := authorizer.RequestMicrophone(ctx); err == nil {
		stream.Stop()
		state.Microphone = Granted
	}

	return state
}
