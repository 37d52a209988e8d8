package main

import (
	"net/http"
	"os"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// startCall registers an onboarded user, starts a call, and returns the call
// page together with its path.
func startCall(t *testing.T, s *testServer) (*goquery.Document, string) {
	t.Helper()
	s.Register(t)
	doc := s.CompleteOnboarding(t)
	doc = s.SubmitFormFromDoc(t, doc, "/calls", nil)
	callID := doc.Find("section.call").AttrOr("data-call-id", "")
	require.NotEmpty(t, callID)
	return doc, "/calls/" + callID
}

func Test_application_call_controls(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)
	doc, callPath := startCall(t, &s)

	// The creator joins on the spot and gets the full control bar.
	controls := doc.Find("#call-controls")
	require.Equal(t, 1, controls.Length())
	for _, action := range []string{"toggle-mute", "toggle-video", "share-screen", "end-call", "more"} {
		require.Equal(t, 1, controls.Find("button[data-action='"+action+"']").Length(), "missing control %s", action)
	}
	require.Equal(t, "Mute", controls.Find("button[data-action='toggle-mute']").Text())
	require.Equal(t, "false", controls.Find("button[data-action='toggle-mute']").AttrOr("aria-pressed", ""))

	// Toggling mute flips the label and the pressed state, and toggling
	// again restores them.
	doc = s.SubmitFormFromDoc(t, doc, callPath+"/controls/toggle-mute", nil)
	muteButton := doc.Find("button[data-action='toggle-mute']")
	require.Equal(t, "Unmute", muteButton.Text())
	require.Equal(t, "true", muteButton.AttrOr("aria-pressed", ""))
	doc = s.SubmitFormFromDoc(t, doc, callPath+"/controls/toggle-mute", nil)
	require.Equal(t, "Mute", doc.Find("button[data-action='toggle-mute']").Text())

	// Posts from htmx swap in just the control bar fragment.
	fragment := s.PostPartial(t, callPath, callPath+"/controls/toggle-video", nil)
	require.Equal(t, 1, fragment.Find("#call-controls").Length())
	require.Equal(t, 0, fragment.Find("nav").Length())
	require.Equal(t, "Start video", fragment.Find("button[data-action='toggle-video']").Text())

	// Unknown control actions are rejected.
	resp := s.PostAction(t, callPath, callPath+"/controls/raise-hand")
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_application_call_viewportTiers(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)
	_, callPath := startCall(t, &s)

	// Without any width signal the bar assumes a small touch device.
	doc := s.GetDoc(t, callPath)
	require.Equal(t, "compact", doc.Find("#call-controls").AttrOr("data-tier", ""))
	require.Contains(t, doc.Find("#call-controls").AttrOr("style", ""), "--touch-target: 44px")

	// The w fallback parameter picks the tier.
	doc = s.GetDoc(t, callPath+"?w=800")
	require.Equal(t, "medium", doc.Find("#call-controls").AttrOr("data-tier", ""))
	doc = s.GetDoc(t, callPath+"?w=1400")
	require.Equal(t, "full", doc.Find("#call-controls").AttrOr("data-tier", ""))
	require.Contains(t, doc.Find("#call-controls").AttrOr("style", ""), "--touch-target: 56px")

	// The client hint takes precedence over the fallback.
	req := s.NewRequest(t, http.MethodGet, callPath+"?w=1400", nil)
	req.Header.Set("Sec-CH-Viewport-Width", "700")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err = goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "medium", doc.Find("#call-controls").AttrOr("data-tier", ""))
}

func Test_application_call_joinAndEnd(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)
	doc, callPath := startCall(t, &s)

	// A second caller sees a join prompt instead of controls.
	s2 := s.NewClient(t)
	s2.Register(t)
	s2.CompleteOnboarding(t)
	joinDoc := s2.GetDoc(t, callPath)
	require.Contains(t, joinDoc.Find("h1").Text(), "Join this call?")
	require.Equal(t, 0, joinDoc.Find("#call-controls").Length())

	// Control posts from outside the call are forged requests.
	resp := s2.PostAction(t, callPath, callPath+"/controls/toggle-mute")
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// After joining, both participants show up in the grid.
	doc2 := s2.SubmitFormFromDoc(t, joinDoc, callPath+"/join", nil)
	require.Equal(t, 1, doc2.Find("#call-controls").Length())
	require.Equal(t, 2, doc2.Find(".video-grid .video-tile").Length())

	// Joining twice is a no-op.
	resp = s2.PostAction(t, callPath, callPath+"/join")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
	doc2 = s2.GetDoc(t, callPath)
	require.Equal(t, 2, doc2.Find(".video-grid .video-tile").Length())

	// The creator ends the call and lands back home.
	doc = s.SubmitForm(t, callPath, callPath+"/controls/end-call", nil)
	require.Contains(t, doc.Find("h1").Text(), "Good to see you")
	endedDoc := s.GetDoc(t, callPath)
	require.Contains(t, endedDoc.Find("h1").Text(), "This call has ended")

	// Controls on an ended call conflict, but ending again stays idempotent.
	resp = s2.PostAction(t, callPath, callPath+"/controls/toggle-mute")
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = s2.PostAction(t, callPath, callPath+"/controls/end-call")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	// Latecomers can no longer join.
	s3 := s.NewClient(t)
	s3.Register(t)
	s3.CompleteOnboarding(t)
	resp = s3.PostAction(t, callPath, callPath+"/join")
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown calls are not found.
	resp = s.Get(t, "/calls/does-not-exist")
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
