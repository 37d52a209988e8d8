package main

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_application_home(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)

	// Signed-out visitors get the landing page with the passkey buttons.
	doc := s.GetDoc(t, "/")
	require.Contains(t, doc.Find("h1").Text(), "AceTime")
	require.Equal(t, 1, doc.Find("#register-button").Length())
	require.Equal(t, 1, doc.Find("#login-button").Length())

	// Fresh users land in the onboarding wizard, not on the dashboard.
	doc = s.Register(t)
	require.Equal(t, 1, doc.Find("section.onboarding").Length())

	// Once onboarded, the dashboard shows up.
	doc = s.CompleteOnboarding(t)
	require.Contains(t, doc.Find("h1").Text(), "Good to see you")
	require.Equal(t, 1, doc.Find("form[action='/calls']").Length())
	require.Contains(t, doc.Find(".dashboard-friends").Text(), "No friends yet")

	// Sign out and back in. Onboarding stays completed, so the dashboard
	// comes straight back.
	doc = s.SubmitFormFromDoc(t, doc, "/api/logout", nil)
	require.Equal(t, 1, doc.Find("#login-button").Length())

	doc = s.Login(t)
	require.Contains(t, doc.Find("h1").Text(), "Good to see you")
	require.Equal(t, 1, doc.Find("form[action='/api/logout']").Length())
}

func Test_application_home_requiresAuthentication(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)

	// Authenticated surfaces bounce signed-out visitors to the landing page.
	for _, urlPath := range []string{"/friends", "/images", "/visions", "/onboarding"} {
		doc := s.GetDoc(t, urlPath)
		require.Equal(t, 1, doc.Find("#register-button").Length(), "expected landing page for %s", urlPath)
	}
}

func Test_application_healthy(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)

	resp := s.Get(t, "/api/healthy")
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
