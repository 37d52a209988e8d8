package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/acetime/acetime/internal/callcontrols"
	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
)

type callTemplateData struct {
	BaseTemplateData
	Call         *models.Call
	Participants []models.CallParticipant
	Joined       bool
	Ended        bool
	ControlBar   controlBarData
	Messages     []models.AssistantMessage
	Images       []models.GeneratedImage
}

// controlBarData renders the control bar both inside the call page and as the
// fragment swapped in after a control post.
type controlBarData struct {
	CallID      string
	Controls    []callcontrols.Control
	Tier        callcontrols.SizeTier
	TouchTarget int
}

// viewportWidth reads the Sec-CH-Viewport-Width client hint. Browsers that
// don't send client hints fall back to the w query parameter set by the call
// page script. Zero means unknown, which TierFor treats as compact.
func viewportWidth(r *http.Request) int {
	hint := r.Header.Get("Sec-CH-Viewport-Width")
	if hint == "" {
		hint = r.URL.Query().Get("w")
	}
	width, err := strconv.Atoi(hint)
	if err != nil {
		return 0
	}
	return width
}

// capabilitiesFor derives the control capabilities from the participant row.
// Screen sharing is the only capability that varies per participant.
func capabilitiesFor(participant *models.CallParticipant) callcontrols.CapabilitySet {
	actions := []callcontrols.Action{
		callcontrols.ToggleMute,
		callcontrols.ToggleVideo,
		callcontrols.More,
	}
	if participant.CanShareScreen {
		actions = append(actions, callcontrols.ShareScreen)
	}
	return callcontrols.NewCapabilitySet(actions...)
}

func (app *application) createCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	call, err := app.calls.Start(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/calls/%s", call.ID), http.StatusSeeOther)
}

func (app *application) callPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	call, err := app.calls.Get(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	tier := callcontrols.TierFor(viewportWidth(r))
	data := callTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Call:             call,
		Ended:            call.Status == models.CallStatusEnded,
		ControlBar: controlBarData{
			CallID:      call.ID,
			Tier:        tier,
			TouchTarget: tier.TouchTarget(),
		},
	}

	if data.Participants, err = app.calls.Participants(ctx, call.ID); err != nil {
		app.serverError(w, r, err)
		return
	}
	if data.Images, err = app.images.ListByCall(ctx, call.ID); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.presignImageURLs(ctx, data.Images)

	participant, err := app.calls.Participant(ctx, call.ID, userID)
	switch {
	case err == nil:
		data.Joined = true
		if !data.Ended {
			data.ControlBar.Controls = callcontrols.Controls(callcontrols.Config{
				Muted:         participant.Muted,
				VideoOff:      participant.VideoOff,
				ScreenSharing: participant.ScreenSharing,
				Capabilities:  capabilitiesFor(participant),
			})
		}
	case errors.Is(err, repositories.ErrNotFound):
		// Not joined yet, the page renders a join prompt instead of controls.
	default:
		app.serverError(w, r, err)
		return
	}

	if data.Joined {
		conversation, err := app.conversations.ForCall(ctx, call.ID, userID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		if data.Messages, err = app.conversations.Messages(ctx, conversation.ID); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	app.render(w, r, http.StatusOK, "call", data)
}

func (app *application) joinCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callID := r.PathValue("id")

	err := app.calls.Join(ctx, callID, contexthelpers.AuthenticatedUserID(ctx))
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		app.notFound(w, r)
		return
	case errors.Is(err, repositories.ErrCallEnded):
		app.clientError(w, r, http.StatusConflict)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/calls/%s", callID), http.StatusSeeOther)
}

func (app *application) callControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	callID := r.PathValue("id")

	call, err := app.calls.Get(ctx, callID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	participant, err := app.calls.Participant(ctx, callID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.clientError(w, r, http.StatusForbidden)
			return
		}
		app.serverError(w, r, err)
		return
	}

	action := callcontrols.Action(r.PathValue("action"))
	if action == callcontrols.EndCall {
		// Ending fires without confirmation and stays idempotent so that two
		// participants hanging up at once both land on the home page.
		if err = app.calls.End(ctx, callID); err != nil {
			app.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if call.Status == models.CallStatusEnded {
		app.clientError(w, r, http.StatusConflict)
		return
	}

	switch action {
	case callcontrols.ToggleMute:
		participant.Muted = !participant.Muted
	case callcontrols.ToggleVideo:
		participant.VideoOff = !participant.VideoOff
	case callcontrols.ShareScreen:
		// No capability, no control: a post against a missing capability is a
		// forged request, not a UI state.
		if !participant.CanShareScreen {
			app.clientError(w, r, http.StatusForbidden)
			return
		}
		participant.ScreenSharing = !participant.ScreenSharing
	default:
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	if err = app.calls.SetControlFlags(ctx, *participant); err != nil {
		app.serverError(w, r, err)
		return
	}

	if app.htmx.NewHandler(w, r).RenderPartial() {
		tier := callcontrols.TierFor(viewportWidth(r))
		app.renderPartial(w, r, "call", "controls", controlBarData{
			CallID: callID,
			Controls: callcontrols.Controls(callcontrols.Config{
				Muted:         participant.Muted,
				VideoOff:      participant.VideoOff,
				ScreenSharing: participant.ScreenSharing,
				Capabilities:  capabilitiesFor(participant),
			}),
			Tier:        tier,
			TouchTarget: tier.TouchTarget(),
		})
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/calls/%s", callID), http.StatusSeeOther)
}
