// Package friends carries the contract of the friend-add API and a client for
// calling it. The server handler and the CLI consume the same request and
// error shapes so the error codes stay in one place.
package friends

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/acetime/acetime/internal/errors"
)

// Error codes returned in the body of a failed POST /api/friends/add. The code
// distinguishes the cases callers act on; the error message is for humans.
const (
	CodeAlreadyFriends = "already_friends"
	CodeNotFound       = "not_found"
	CodeSelf           = "self"
	CodeUnauthorized   = "unauthorized"
)

// AddRequest is the body of POST /api/friends/add.
type AddRequest struct {
	TargetUserID string `json:"targetUserId"`
}

// ErrorResponse is the body of a failed POST /api/friends/add.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NoticeKind doubles as the CSS class of the rendered notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// Notice is the transient notification shown after an add-friend attempt.
// A success notice also tells the caller to close the prompt.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Client calls the friend-add API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	requestTimeout := 10 * time.Second
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With("source", "friends.Client"),
	}
}

// Add issues a single request to add the target user as a friend and converts
// the outcome into a notice. Failures never surface as errors and nothing
// retries: the server reporting an existing friendship reads as informational,
// everything else as an error. Without a token no request is issued at all.
func (c *Client) Add(ctx context.Context, targetUserID string) Notice {
	if c.token == "" {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "add friend without session token")
		return Notice{Kind: NoticeError, Message: "Sign in to add friends."}
	}

	body, err := json.Marshal(AddRequest{TargetUserID: targetUserID})
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "marshal add friend request", errors.SlogError(err))
		return Notice{Kind: NoticeError, Message: "Could not add friend. Please try again."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/friends/add", bytes.NewReader(body))
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "create add friend request", errors.SlogError(err))
		return Notice{Kind: NoticeError, Message: "Could not add friend. Please try again."}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "add friend request failed", errors.SlogError(err))
		return Notice{Kind: NoticeError, Message: "Could not add friend. Please try again."}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return Notice{Kind: NoticeSuccess, Message: "Friend added."}
	}

	var errorResponse ErrorResponse
	if err = json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "decode add friend error response",
			errors.SlogError(err), slog.Int("status", resp.StatusCode))
		return Notice{Kind: NoticeError, Message: "Could not add friend. Please try again."}
	}

	if errorResponse.Code == CodeAlreadyFriends {
		message := errorResponse.Error
		if message == "" {
			message = "You are already friends."
		}
		return Notice{Kind: NoticeInfo, Message: message}
	}

	c.logger.LogAttrs(ctx, slog.LevelWarn, "add friend rejected",
		slog.Int("status", resp.StatusCode), slog.String("code", errorResponse.Code))
	message := errorResponse.Error
	if message == "" {
		message = "Could not add friend. Please try again."
	}
	return Notice{Kind: NoticeError, Message: message}
}
