package main

import (
	"io"
	"net/http"
	url2 "net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_application_assistant_unconfigured(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)
	_, callPath := startCall(t, &s)

	// Without an OpenAI key the assistant declines instead of erroring.
	resp := s.PostForm(t, callPath, callPath+"/assistant", url2.Values{"question": {"Who is on the line?"}})
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Image generation rides the same configuration.
	resp = s.PostForm(t, "/images", "/images/generate", url2.Values{"prompt": {"a fox on a video call"}})
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func Test_application_assistant_streamReplay(t *testing.T) {
	s := startTestServer(t, os.Stdout, testLookupEnv)
	_, callPath := startCall(t, &s)

	// With no reply in flight the stream replays history, which is empty
	// here, and closes with the done event.
	req := s.NewRequest(t, http.MethodGet, callPath+"/assistant/stream", nil)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Contains(t, string(body), "event: done")
}
