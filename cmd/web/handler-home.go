package main

import (
	"net/http"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/models"
)

type homeTemplateData struct {
	BaseTemplateData
	DisplayName string
	Friends     []models.User
	Images      []models.GeneratedImage
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
	}

	ctx := r.Context()
	if data.Authenticated {
		userID := contexthelpers.AuthenticatedUserID(ctx)

		user, err := app.users.Get(ctx, userID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.DisplayName = user.DisplayName

		if data.Friends, err = app.friends.ListForUser(ctx, userID); err != nil {
			app.serverError(w, r, err)
			return
		}
		if data.Images, err = app.images.ListByCreator(ctx, userID); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	app.render(w, r, http.StatusOK, "home", data)
}
