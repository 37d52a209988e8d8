package models

import "time"

// ImageStyle is the rendering style requested from the image model.
type ImageStyle string

const (
	ImageStyleRealistic ImageStyle = "realistic"
	ImageStyleArtistic  ImageStyle = "artistic"
	ImageStyleSketch    ImageStyle = "sketch"
	ImageStyleDream     ImageStyle = "dream"
	ImageStyleAbstract  ImageStyle = "abstract"
)

// DefaultImageStyle applies when a generation request names no style.
const DefaultImageStyle = ImageStyleDream

func (s ImageStyle) Valid() bool {
	switch s {
	case ImageStyleRealistic, ImageStyleArtistic, ImageStyleSketch, ImageStyleDream, ImageStyleAbstract:
		return true
	}
	return false
}

// Directive translates the style into the wording appended to the image model
// prompt. Unknown and empty styles read as the dream default.
func (s ImageStyle) Directive() string {
	switch s {
	case ImageStyleRealistic:
		return "photorealistic with natural lighting"
	case ImageStyleArtistic:
		return "painterly with expressive brushwork"
	case ImageStyleSketch:
		return "loose pencil sketch"
	case ImageStyleAbstract:
		return "abstract shapes and bold color"
	default:
		return "dreamlike with soft focus"
	}
}

// ImageContextSource records where the generation prompt came from.
type ImageContextSource string

const (
	ImageContextSourceCallTranscript ImageContextSource = "call_transcript"
	ImageContextSourceChat           ImageContextSource = "chat"
	ImageContextSourceManual         ImageContextSource = "manual"
)

const DefaultImageContextSource = ImageContextSourceManual

func (s ImageContextSource) Valid() bool {
	switch s {
	case ImageContextSourceCallTranscript, ImageContextSourceChat, ImageContextSourceManual:
		return true
	}
	return false
}

// GeneratedImage is a picture the assistant generated. CallID and
// ConversationID back-reference the call and chat it came from; both stay nil
// for manual generations. StorageKey points to the blob store copy when one
// was uploaded.
type GeneratedImage struct {
	ID                string             `db:"id"`
	CallID            *string            `db:"call_id"`
	ConversationID    *int64             `db:"conversation_id"`
	CreatorID         []byte             `db:"creator_id"`
	Prompt            string             `db:"prompt"`
	RevisedPrompt     *string            `db:"revised_prompt"`
	ImageURL          string             `db:"image_url"`
	StorageKey        *string            `db:"storage_key"`
	TranscriptContext *string            `db:"transcript_context"`
	Style             ImageStyle         `db:"style"`
	ContextSource     ImageContextSource `db:"context_source"`
	CreatedAt         time.Time          `db:"created_at"`
	// Likes is the number of distinct users who liked the image. Populated by
	// list queries, not stored on the row.
	Likes int64 `db:"likes"`
}
