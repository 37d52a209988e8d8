package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	url2 "net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/logging"
	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func waitForReady(ctx context.Context, endpoint string) error {
	timeout := 1 * time.Second
	client := http.Client{}
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			endpoint,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(250 * time.Millisecond)
		}
	}
}

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "ACETIME_ADDR":
		return "localhost:0", true
	case "ACETIME_SQLITE_URL":
		return ":memory:", true
	default:
		return "", false
	}
}

type testServer struct {
	url           string
	client        http.Client
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator
}

// startTestServer starts the test server, waits for it to be ready, and return the server URL for testing.
func startTestServer(t *testing.T, w io.Writer, lookupEnv func(string) (string, bool)) testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	// We need to grab the dynamically allocated port from the log output.
	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "addr" {
				addrCh <- a.Value.String()
			}
			return a
		},
	})))

	// Start the server and wait for it to be ready.
	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel()
			assert.NoError(t, err)
		}
	}()
	select {
	case <-ctx.Done():
		t.Fatal("server failed to start")
		return testServer{} //nolint:exhaustruct // This is unreachable.
	case addr := <-addrCh:
		serverURL := fmt.Sprintf("http://%s", addr)
		if err := waitForReady(ctx, fmt.Sprintf("%s/api/healthy", serverURL)); err != nil {
			require.NoError(t, err)
		}
		jar, err := newUnsafeCookieJar()
		require.NoError(t, err)
		return testServer{
			url:           serverURL,
			client:        http.Client{Jar: jar},
			rp:            virtualwebauthn.RelyingParty{Name: "AceTime", ID: "localhost", Origin: "http://localhost:0"},
			authenticator: virtualwebauthn.NewAuthenticator(),
		}
	}
}

func (s *testServer) URL() string {
	return s.url
}

// NewClient returns a second client against the same server, with its own
// cookie jar and authenticator, for tests that need more than one user.
func (s *testServer) NewClient(t *testing.T) testServer {
	t.Helper()
	jar, err := newUnsafeCookieJar()
	require.NoError(t, err)
	return testServer{
		url:           s.url,
		client:        http.Client{Jar: jar},
		rp:            s.rp,
		authenticator: virtualwebauthn.NewAuthenticator(),
	}
}

// Get fetches a URL and returns the response.
func (s *testServer) Get(t *testing.T, urlPath string) *http.Response {
	t.Helper()
	resp, err := s.client.Get(s.url + urlPath)
	require.NoError(t, err)
	return resp
}

// GetDoc fetches a URL and returns a goquery document.
func (s *testServer) GetDoc(t *testing.T, urlPath string) *goquery.Document {
	t.Helper()
	resp := s.Get(t, urlPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() {
		err := resp.Body.Close()
		require.NoError(t, err)
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

// NewRequest creates a new HTTP request to the server.
func (s *testServer) NewRequest(t *testing.T, method, urlPath string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, s.url+urlPath, body)
	require.NoError(t, err)
	return req
}

// Register registers a new WebAuthn credential with the server and returns the
// page a fresh user lands on, which is the onboarding wizard.
func (s *testServer) Register(t *testing.T) *goquery.Document {
	t.Helper()

	// Start Webauthn registration. The webauthn endpoints are CSRF-exempt
	// JSON endpoints, so no token dance is needed.
	req := s.NewRequest(t, http.MethodPost, "/api/registration/start", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bodyBytes []byte
	bodyBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	err = resp.Body.Close()
	require.NoError(t, err)
	attOpts, err := virtualwebauthn.ParseAttestationOptions(string(bodyBytes))
	require.NoError(t, err)
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	// Finalise Webauthn registration.
	attestationResponse := virtualwebauthn.CreateAttestationResponse(s.rp, s.authenticator, credential, *attOpts)
	req = s.NewRequest(t, http.MethodPost, "/api/registration/finish", strings.NewReader(attestationResponse))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.client.Do(req)
	require.NoError(t, err)
	err = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// At this point, our credential is ready for logging in.
	s.authenticator.AddCredential(credential)
	// This option is needed for making Passkey login work.
	s.authenticator.Options.UserHandle = []byte(attOpts.UserID)

	return s.GetDoc(t, "/")
}

// Login logs in to the server given there is a registered WebAuthn credential
// and returns the page the user lands on.
func (s *testServer) Login(t *testing.T) *goquery.Document {
	t.Helper()

	req := s.NewRequest(t, http.MethodPost, "/api/login/start", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bodyBytes []byte
	bodyBytes, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	err = resp.Body.Close()
	require.NoError(t, err)
	asOpts, err := virtualwebauthn.ParseAssertionOptions(string(bodyBytes))
	require.NoError(t, err)
	credential := s.authenticator.Credentials[0]
	asResp := virtualwebauthn.CreateAssertionResponse(s.rp, s.authenticator, credential, *asOpts)
	req = s.NewRequest(t, http.MethodPost, "/api/login/finish", strings.NewReader(asResp))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.client.Do(req)
	require.NoError(t, err)
	err = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return s.GetDoc(t, "/")
}

// SubmitForm submits the form with action formActionURLPath found on the page
// at formURLPath and returns the response document. The extra values are sent
// alongside the form's CSRF token.
func (s *testServer) SubmitForm(t *testing.T, formURLPath string, formActionURLPath string, values url2.Values) *goquery.Document {
	t.Helper()
	doc := s.GetDoc(t, formURLPath)
	return s.SubmitFormFromDoc(t, doc, formActionURLPath, values)
}

// SubmitFormFromDoc is SubmitForm for an already fetched document.
func (s *testServer) SubmitFormFromDoc(t *testing.T, doc *goquery.Document, formActionURLPath string, values url2.Values) *goquery.Document {
	t.Helper()
	data := s.formData(t, doc, formActionURLPath, values)

	// Submit the form
	resp, err := s.client.Post(s.url+formActionURLPath, "application/x-www-form-urlencoded", data)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func(body io.ReadCloser) {
		err = body.Close()
		assert.NoError(t, err)
	}(resp.Body)

	// Parse the response
	doc, err = goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

// PostForm submits like SubmitForm but returns the raw response so that error
// statuses can be asserted. The caller closes the body.
func (s *testServer) PostForm(t *testing.T, formURLPath string, formActionURLPath string, values url2.Values) *http.Response {
	t.Helper()
	doc := s.GetDoc(t, formURLPath)
	data := s.formData(t, doc, formActionURLPath, values)
	resp, err := s.client.Post(s.url+formActionURLPath, "application/x-www-form-urlencoded", data)
	require.NoError(t, err)
	return resp
}

// PostPartial submits the form as an htmx request and returns the swapped-in
// fragment.
func (s *testServer) PostPartial(t *testing.T, formURLPath string, formActionURLPath string, values url2.Values) *goquery.Document {
	t.Helper()
	doc := s.GetDoc(t, formURLPath)
	data := s.formData(t, doc, formActionURLPath, values)
	req, err := http.NewRequest(http.MethodPost, s.url+formActionURLPath, data)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() {
		err = resp.Body.Close()
		assert.NoError(t, err)
	}()
	fragment, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return fragment
}

// PostAction posts an empty form to actionPath with a CSRF token lifted from
// any form on fromPath. It is for endpoints whose own form is not rendered
// for the current user, like controls of a call the user has not joined.
func (s *testServer) PostAction(t *testing.T, fromPath string, actionPath string) *http.Response {
	t.Helper()
	doc := s.GetDoc(t, fromPath)
	csrfToken, ok := doc.Find("input[name=csrf_token]").First().Attr("value")
	require.True(t, ok, "no csrf_token found on %s", fromPath)
	formData := url2.Values{}
	formData.Set("csrf_token", csrfToken)
	resp, err := s.client.Post(s.url+actionPath, "application/x-www-form-urlencoded", strings.NewReader(formData.Encode()))
	require.NoError(t, err)
	return resp
}

// formData builds the urlencoded body for the form with the given action,
// merging the form's CSRF token into the caller's values.
func (s *testServer) formData(t *testing.T, doc *goquery.Document, formActionURLPath string, values url2.Values) *strings.Reader {
	t.Helper()
	html, err := doc.Html()
	require.NoError(t, err)

	formSelector := fmt.Sprintf("form[action='%s']", formActionURLPath)
	form := doc.Find(formSelector)
	require.Equal(t, 1, form.Length(), "form %s not found in document:\n%s", formSelector, html)
	csrfToken, ok := form.Find("input[name=csrf_token]").Attr("value")
	require.True(t, ok, "csrf_token not found in form %s", formSelector)

	formData := url2.Values{}
	for key, vals := range values {
		formData[key] = vals
	}
	formData.Set("csrf_token", csrfToken)
	return strings.NewReader(formData.Encode())
}

// CompleteOnboarding skips the wizard so tests can reach the main surface.
func (s *testServer) CompleteOnboarding(t *testing.T) *goquery.Document {
	t.Helper()
	return s.SubmitForm(t, "/onboarding", "/onboarding/skip", nil)
}

// APIToken mints a bearer token for the JSON API using the session cookie.
func (s *testServer) APIToken(t *testing.T) string {
	t.Helper()
	resp, err := s.client.Post(s.url+"/api/token", "application/json", nil)
	require.NoError(t, err)
	defer func() {
		err = resp.Body.Close()
		require.NoError(t, err)
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}
