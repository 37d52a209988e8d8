package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/acetime/acetime/internal/e2etest"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/friends"
	"github.com/acetime/acetime/internal/logging"
)

func TestAuth(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return errors.Wrap(err, "register user")
	}
	if _, err = client.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout user")
	}
	if _, err = client.Login(ctx); err != nil {
		return errors.Wrap(err, "login user")
	}
	return nil
}

// TestCallFlow walks a fresh user from the onboarding wizard through a call:
// skip the wizard, start a call, toggle mute, end the call.
func TestCallFlow(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	doc, err := client.SubmitForm(ctx, "/onboarding", "/onboarding/skip", nil)
	if err != nil {
		return errors.Wrap(err, "skip onboarding")
	}
	if doc.Find("form[action='/calls']").Length() != 1 {
		return errors.New("start call form not found on dashboard")
	}

	if doc, err = client.SubmitForm(ctx, "/", "/calls", nil); err != nil {
		return errors.Wrap(err, "start call")
	}
	callID, ok := doc.Find("section.call").Attr("data-call-id")
	if !ok || callID == "" {
		return errors.New("call id not found on call page")
	}
	callPath := "/calls/" + callID

	if doc, err = client.SubmitForm(ctx, callPath, callPath+"/controls/toggle-mute", nil); err != nil {
		return errors.Wrap(err, "toggle mute")
	}
	if doc.Find("button[data-action='toggle-mute']").Text() != "Unmute" {
		return errors.New("mute toggle did not take")
	}
	if _, err = client.SubmitForm(ctx, callPath, callPath+"/controls/end-call", nil); err != nil {
		return errors.Wrap(err, "end call")
	}
	return nil
}

// TestFriends has the second caller add the first one through the JSON API,
// exercising the token minting endpoint and the friends client.
func TestFriends(logger *slog.Logger, url string, first *e2etest.Client, second *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	if _, err := second.Register(ctx); err != nil {
		return errors.Wrap(err, "register second user")
	}
	if _, err := second.SubmitForm(ctx, "/onboarding", "/onboarding/skip", nil); err != nil {
		return errors.Wrap(err, "skip onboarding for second user")
	}

	doc, err := first.GetDoc(ctx, "/friends")
	if err != nil {
		return errors.Wrap(err, "get friends page")
	}
	code := doc.Find("#own-friend-code").Text()
	if code == "" {
		return errors.New("own friend code not found")
	}

	token, err := second.APIToken(ctx)
	if err != nil {
		return errors.Wrap(err, "mint api token")
	}
	notice := friends.NewClient(url, token, logger).Add(ctx, code)
	if notice.Kind != friends.NoticeSuccess {
		return errors.New("add friend failed", slog.String("message", notice.Message))
	}

	if doc, err = second.GetDoc(ctx, "/friends"); err != nil {
		return errors.Wrap(err, "get friends page after add")
	}
	if doc.Find(".friend-list li").Length() == 0 {
		return errors.New("friend list empty after add")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		client2  *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestCallFlow(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing call flow", errors.SlogError(err))
		os.Exit(1)
	}
	if client2, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating second client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestFriends(logger, url, client, client2); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing friends", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
