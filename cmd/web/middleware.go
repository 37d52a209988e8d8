package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/friends"
	"github.com/acetime/acetime/internal/random"
	"github.com/justinas/nosurf"
)

func (app *application) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var nonceLength uint = 24
		nonce, err := random.Letters(nonceLength)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		r = contexthelpers.SetCSPNonce(r, nonce)

		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf(`script-src 'nonce-%s' 'strict-dynamic' https: http:;
				   object-src 'none';
				   base-uri 'none';`, nonce))

		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")
		// The call page sizes its touch targets off this client hint.
		w.Header().Set("Accept-CH", "Sec-CH-Viewport-Width")

		next.ServeHTTP(w, r)
	})
}

func cacheForeverHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		app.logger.Debug("received request", "proto", proto, "method", method, "uri", uri)

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requireAuthentication redirects guests to the landing page, which hosts the
// passkey registration and login buttons.
func (app *application) requireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		w.Header().Add("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// requireOnboarded sends authenticated users into the onboarding wizard until
// they have completed or skipped it. Guests pass through so the landing page
// stays reachable.
func (app *application) requireOnboarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if contexthelpers.IsAuthenticated(ctx) {
			if progress := app.onboarding.Load(ctx, contexthelpers.AuthenticatedUserID(ctx)); !progress.Completed {
				http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// bearerAuth authenticates JSON API requests with the tokens minted by the
// token handler. Failures answer with the structured error body API clients
// expect instead of a redirect.
func (app *application) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			app.unauthorized(w, r)
			return
		}

		userID, err := app.tokens.Verify(tokenString)
		if err != nil {
			app.logger.Debug("rejected bearer token", "uri", r.URL.RequestURI())
			app.unauthorized(w, r)
			return
		}

		r = contexthelpers.AuthenticateContext(r, userID)

		next.ServeHTTP(w, r)
	})
}

func (app *application) unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(friends.ErrorResponse{
		Error: "authentication required",
		Code:  friends.CodeUnauthorized,
	}); err != nil {
		app.logger.Debug("write unauthorized response", "uri", r.URL.RequestURI())
	}
}

// serverSentEventMiddleware makes our session library scs work with Server Sent Events (SSE).
// Use this instead of app.sessionManager.LoadAndSave.
// See https://github.com/alexedwards/scs/issues/141#issuecomment-1807075358
func (app *application) serverSentEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}
		ctx, err := app.sessionManager.Load(r.Context(), token)
		if err != nil {
			app.serverError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf
func noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
	})
	// The webauthn endpoints speak JSON from our own scripts and the friend
	// endpoints authenticate with bearer tokens instead of cookies.
	// TODO: Enable CSRF protection for the token minting endpoint.
	csrfHandler.ExemptPaths(
		"/api/registration/start",
		"/api/registration/finish",
		"/api/login/start",
		"/api/login/finish",
		"/api/token",
		"/api/friends/add",
	)

	return csrfHandler
}
