package main

import (
	"net/http"

	"github.com/acetime/acetime/ui"
	"github.com/justinas/alice"
)

func timeoutMiddleware(next http.Handler) http.Handler {
	return timeoutHandler(next, defaultTimeout)
}

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", alice.New(cacheForeverHeaders).Then(http.FileServerFS(ui.Files)))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	base := alice.New(
		app.sessionManager.LoadAndSave,
		noSurf,
		app.webAuthnHandler.AuthenticateMiddleware,
		commonContext,
	)
	session := alice.New(timeoutMiddleware).Extend(base)
	// The wizard routes skip requireOnboarded so that half-onboarded users
	// don't redirect back to the page they are already on.
	wizard := session.Append(app.requireAuthentication)
	authed := wizard.Append(app.requireOnboarded)
	// Image generation waits on the image model well past the default
	// timeout, so its chain leaves timeoutMiddleware out.
	slow := base.Append(app.requireAuthentication, app.requireOnboarded)

	mux.Handle("GET /{$}", session.Append(app.requireOnboarded).ThenFunc(app.home))

	mux.Handle("GET /onboarding", wizard.ThenFunc(app.onboardingPage))
	mux.Handle("POST /onboarding/next", wizard.ThenFunc(app.onboardingNext))
	mux.Handle("POST /onboarding/previous", wizard.ThenFunc(app.onboardingPrevious))
	mux.Handle("POST /onboarding/skip", wizard.ThenFunc(app.onboardingSkip))
	mux.Handle("POST /onboarding/complete", wizard.ThenFunc(app.onboardingComplete))
	mux.Handle("POST /onboarding/permissions", wizard.ThenFunc(app.onboardingPermissions))
	mux.Handle("POST /onboarding/profile", wizard.ThenFunc(app.onboardingProfile))

	mux.Handle("POST /calls", authed.ThenFunc(app.createCall))
	mux.Handle("GET /calls/{id}", authed.ThenFunc(app.callPage))
	mux.Handle("POST /calls/{id}/join", authed.ThenFunc(app.joinCall))
	mux.Handle("POST /calls/{id}/controls/{action}", authed.ThenFunc(app.callControl))
	mux.Handle("POST /calls/{id}/assistant", authed.ThenFunc(app.askAssistant))

	// SSE cannot use the regular session chain because LoadAndSave would
	// deadlock trying to write headers on a never-ending response.
	sse := alice.New(app.serverSentEventMiddleware, app.webAuthnHandler.AuthenticateMiddleware)
	mux.Handle("GET /calls/{id}/assistant/stream", sse.ThenFunc(app.streamAssistant))

	mux.Handle("GET /images", authed.ThenFunc(app.imagesPage))
	mux.Handle("POST /images/generate", slow.ThenFunc(app.generateImage))
	mux.Handle("POST /images/{id}/like", authed.ThenFunc(app.likeImage))

	mux.Handle("GET /visions", authed.ThenFunc(app.visionsPage))
	mux.Handle("POST /visions", authed.ThenFunc(app.createVision))
	mux.Handle("POST /visions/{id}/status", authed.ThenFunc(app.setVisionStatus))
	mux.Handle("POST /visions/{id}/visibility", authed.ThenFunc(app.setVisionVisibility))

	mux.Handle("GET /friends", authed.ThenFunc(app.friendsPage))
	mux.Handle("POST /friends/add", authed.ThenFunc(app.addFriend))

	mux.Handle("POST /api/registration/start", session.ThenFunc(app.beginRegistration))
	mux.Handle("POST /api/registration/finish", session.ThenFunc(app.finishRegistration))
	mux.Handle("POST /api/login/start", session.ThenFunc(app.beginLogin))
	mux.Handle("POST /api/login/finish", session.ThenFunc(app.finishLogin))
	mux.Handle("POST /api/logout", session.ThenFunc(app.logout))

	mux.Handle("POST /api/token", wizard.ThenFunc(app.issueToken))
	api := alice.New(timeoutMiddleware, app.bearerAuth)
	mux.Handle("POST /api/friends/add", api.ThenFunc(app.apiAddFriend))

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux)))
}
