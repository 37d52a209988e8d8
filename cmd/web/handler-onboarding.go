package main

import (
	"net/http"
	"strings"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/onboarding"
	"github.com/acetime/acetime/internal/permissions"
)

// Session keys for the permission outcomes collected on the permissions step.
// The outcomes are browser-scoped, so they live in the session instead of the
// user's onboarding snapshot.
const (
	cameraGrantSessionKey     = "onboarding.cameraGrant"
	microphoneGrantSessionKey = "onboarding.microphoneGrant"
)

const maxDisplayNameLength = 100

type onboardingTemplateData struct {
	BaseTemplateData
	Progress    onboarding.Progress
	Ratio       float64
	Permissions permissions.State
	CanContinue bool
	DisplayName string
}

func (app *application) onboardingPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	progress := app.onboarding.Load(ctx, userID)
	if progress.Completed {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	user, err := app.users.Get(ctx, userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	state := app.permissionState(r)
	data := onboardingTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Progress:         progress,
		Ratio:            progress.Ratio(),
		Permissions:      state,
		CanContinue:      progress.Step != onboarding.StepPermissions || state.Determined(),
		DisplayName:      user.DisplayName,
	}

	app.render(w, r, http.StatusOK, "onboarding", data)
}

func (app *application) onboardingNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	progress := app.onboarding.Load(ctx, userID)

	// The permissions step holds until both device outcomes are in, a denial
	// counts as an outcome.
	if progress.Step == onboarding.StepPermissions && !app.permissionState(r).Determined() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	app.applyOnboardingAction(w, r, onboarding.ActionNext)
}

func (app *application) onboardingPrevious(w http.ResponseWriter, r *http.Request) {
	app.applyOnboardingAction(w, r, onboarding.ActionPrevious)
}

func (app *application) onboardingSkip(w http.ResponseWriter, r *http.Request) {
	app.applyOnboardingAction(w, r, onboarding.ActionSkip)
}

func (app *application) onboardingComplete(w http.ResponseWriter, r *http.Request) {
	app.applyOnboardingAction(w, r, onboarding.ActionComplete)
}

func (app *application) applyOnboardingAction(w http.ResponseWriter, r *http.Request, action onboarding.Action) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	progress, _ := onboarding.Apply(app.onboarding.Load(ctx, userID), action)
	if err := app.onboarding.Save(ctx, userID, progress); err != nil {
		app.serverError(w, r, err)
		return
	}

	if progress.Completed {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}

// onboardingPermissions records the tri-state outcomes posted by the browser
// after it has run the getUserMedia requests.
func (app *application) onboardingPermissions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	camera, err := permissions.ParseGrant(r.PostForm.Get("camera"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	microphone, err := permissions.ParseGrant(r.PostForm.Get("microphone"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	app.sessionManager.Put(ctx, cameraGrantSessionKey, camera.String())
	app.sessionManager.Put(ctx, microphoneGrantSessionKey, microphone.String())

	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}

// onboardingProfile saves the display name and finishes the wizard.
func (app *application) onboardingProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	displayName := strings.TrimSpace(r.PostForm.Get("display_name"))
	if displayName == "" || len(displayName) > maxDisplayNameLength {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	if err := app.users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.applyOnboardingAction(w, r, onboarding.ActionComplete)
}

// permissionState rebuilds the permissions screen state from the session.
// Unparseable or missing values read as undetermined.
func (app *application) permissionState(r *http.Request) permissions.State {
	ctx := r.Context()
	camera, _ := permissions.ParseGrant(app.sessionManager.GetString(ctx, cameraGrantSessionKey))
	microphone, _ := permissions.ParseGrant(app.sessionManager.GetString(ctx, microphoneGrantSessionKey))
	return permissions.State{Camera: camera, Microphone: microphone}
}
