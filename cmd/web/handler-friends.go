package main

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/friends"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
)

// Flash keys for the add-friend notice shown after the redirect.
const (
	noticeKindSessionKey    = "flash.noticeKind"
	noticeMessageSessionKey = "flash.noticeMessage"
)

type friendsTemplateData struct {
	BaseTemplateData
	Friends []models.User
	// FriendCode is the caller's own code, shown so they can hand it to
	// people they want to connect with.
	FriendCode string
	Notice     *friends.Notice
}

func (app *application) friendsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	data := friendsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		FriendCode:       base64.RawURLEncoding.EncodeToString(userID),
	}

	var err error
	if data.Friends, err = app.friends.ListForUser(ctx, userID); err != nil {
		app.serverError(w, r, err)
		return
	}

	if kind := app.sessionManager.PopString(ctx, noticeKindSessionKey); kind != "" {
		data.Notice = &friends.Notice{
			Kind:    friends.NoticeKind(kind),
			Message: app.sessionManager.PopString(ctx, noticeMessageSessionKey),
		}
	}

	app.render(w, r, http.StatusOK, "friends", data)
}

// addFriend handles the friends page form. The outcome always renders as a
// notice: failures here are conversation states, not errors.
func (app *application) addFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	notice := app.addFriendNotice(r, strings.TrimSpace(r.PostForm.Get("friend_code")))

	if app.htmx.NewHandler(w, r).RenderPartial() {
		app.renderPartial(w, r, "friends", "notice", notice)
		return
	}

	app.sessionManager.Put(ctx, noticeKindSessionKey, string(notice.Kind))
	app.sessionManager.Put(ctx, noticeMessageSessionKey, notice.Message)
	http.Redirect(w, r, "/friends", http.StatusSeeOther)
}

// addFriendNotice runs the add and folds every outcome into the notice shown
// to the user.
func (app *application) addFriendNotice(r *http.Request, friendCode string) friends.Notice {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	friendID, err := base64.RawURLEncoding.DecodeString(friendCode)
	if friendCode == "" || err != nil {
		return friends.Notice{Kind: friends.NoticeError, Message: "That friend code does not look right."}
	}

	err = app.friends.Add(ctx, userID, friendID)
	switch {
	case errors.Is(err, repositories.ErrSelfFriendship):
		return friends.Notice{Kind: friends.NoticeError, Message: "That is your own friend code."}
	case errors.Is(err, repositories.ErrNotFound):
		return friends.Notice{Kind: friends.NoticeError, Message: "No caller found for that friend code."}
	case errors.Is(err, repositories.ErrAlreadyFriends):
		return friends.Notice{Kind: friends.NoticeInfo, Message: "You are already friends."}
	case err != nil:
		app.logger.LogAttrs(ctx, slog.LevelError, "add friend", errors.SlogError(err))
		return friends.Notice{Kind: friends.NoticeError, Message: "Could not add friend. Please try again."}
	}
	return friends.Notice{Kind: friends.NoticeSuccess, Message: "Friend added."}
}

// issueToken mints a bearer token for the JSON API. The session cookie proves
// who is asking.
func (app *application) issueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := app.tokens.Issue(contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		app.serverError(w, r, err)
		return
	}
}

// apiAddFriend is the bearer-authenticated JSON flavor of addFriend. Outcomes
// map to the structured error codes API clients branch on.
func (app *application) apiAddFriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var request friends.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		app.writeFriendError(w, r, http.StatusBadRequest, friends.ErrorResponse{
			Error: "invalid request body",
		})
		return
	}

	friendID, err := base64.RawURLEncoding.DecodeString(request.TargetUserID)
	if request.TargetUserID == "" || err != nil {
		app.writeFriendError(w, r, http.StatusNotFound, friends.ErrorResponse{
			Error: "no user with that id",
			Code:  friends.CodeNotFound,
		})
		return
	}

	err = app.friends.Add(ctx, userID, friendID)
	switch {
	case errors.Is(err, repositories.ErrSelfFriendship):
		app.writeFriendError(w, r, http.StatusUnprocessableEntity, friends.ErrorResponse{
			Error: "cannot befriend yourself",
			Code:  friends.CodeSelf,
		})
		return
	case errors.Is(err, repositories.ErrNotFound):
		app.writeFriendError(w, r, http.StatusNotFound, friends.ErrorResponse{
			Error: "no user with that id",
			Code:  friends.CodeNotFound,
		})
		return
	case errors.Is(err, repositories.ErrAlreadyFriends):
		app.writeFriendError(w, r, http.StatusConflict, friends.ErrorResponse{
			Error: "you are already friends",
			Code:  friends.CodeAlreadyFriends,
		})
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (app *application) writeFriendError(w http.ResponseWriter, r *http.Request, status int, response friends.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		app.logger.Debug("write friend error response", "uri", r.URL.RequestURI())
	}
}
