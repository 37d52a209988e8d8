package main

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/acetime/acetime/internal/contexthelpers"
	"github.com/acetime/acetime/internal/errors"
	"github.com/acetime/acetime/internal/models"
	"github.com/acetime/acetime/internal/repositories"
)

const maxVisionTags = 10

type visionsTemplateData struct {
	BaseTemplateData
	Visions  []models.Vision
	Category string
	Tag      string
}

// visionsPage lists the signed-in user's vision board, optionally narrowed to
// one category or tag through query parameters.
func (app *application) visionsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)

	data := visionsTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Category:         r.URL.Query().Get("category"),
		Tag:              r.URL.Query().Get("tag"),
	}

	var (
		visions []models.Vision
		err     error
	)
	switch {
	case data.Category != "":
		visions, err = app.visions.ListByCategory(ctx, userID, data.Category)
	case data.Tag != "":
		visions, err = app.visions.ListByTag(ctx, userID, data.Tag)
	default:
		visions, err = app.visions.ListByOwner(ctx, userID)
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data.Visions = visions

	app.render(w, r, http.StatusOK, "visions", data)
}

func (app *application) createVision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.PostForm.Get("title"))
	if title == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}
	visibility := models.VisionVisibility(r.PostForm.Get("visibility"))
	if visibility != "" && !visibility.Valid() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	vision := models.Vision{
		OwnerID:     contexthelpers.AuthenticatedUserID(ctx),
		Title:       title,
		Description: strings.TrimSpace(r.PostForm.Get("description")),
		Category:    strings.TrimSpace(r.PostForm.Get("category")),
		Visibility:  visibility,
		Tags:        parseTags(r.PostForm.Get("tags")),
	}
	if err := app.visions.Insert(ctx, &vision); err != nil {
		app.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/visions", http.StatusSeeOther)
}

// parseTags splits the comma-separated tag field, dropping empties and
// duplicates while keeping the authored order.
func parseTags(raw string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxVisionTags {
			break
		}
	}
	return tags
}

func (app *application) setVisionStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	status := models.VisionStatus(r.PostForm.Get("status"))
	if !status.Valid() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	app.updateOwnVision(w, r, func(id string) error {
		return app.visions.SetStatus(r.Context(), id, status)
	})
}

func (app *application) setVisionVisibility(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	visibility := models.VisionVisibility(r.PostForm.Get("visibility"))
	if !visibility.Valid() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	app.updateOwnVision(w, r, func(id string) error {
		return app.visions.SetVisibility(r.Context(), id, visibility)
	})
}

// updateOwnVision guards that the vision exists and belongs to the caller
// before applying the update.
func (app *application) updateOwnVision(w http.ResponseWriter, r *http.Request, update func(id string) error) {
	ctx := r.Context()
	visionID := r.PathValue("id")

	vision, err := app.visions.Get(ctx, visionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}
	if !bytes.Equal(vision.OwnerID, contexthelpers.AuthenticatedUserID(ctx)) {
		app.clientError(w, r, http.StatusForbidden)
		return
	}

	if err = update(visionID); err != nil {
		app.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/visions", http.StatusSeeOther)
}
