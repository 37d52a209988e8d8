// Package ai wraps the OpenAI API behind the small surface the assistant
// needs: chat completions, streamed chat completions, and image generation.
package ai

import (
	"context"

	"github.com/acetime/acetime/internal/errors"
	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) Client {
	return Client{
		client: openai.NewClient(apiKey),
	}
}

const MaxTokens = 4096

func (c *Client) SyncCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
) (openai.ChatCompletionResponse, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     openai.GPT3Dot5Turbo1106,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return openai.ChatCompletionResponse{}, errors.Wrap(err, "create chat completion")
	}
	return completion, nil
}

func (c *Client) StreamCompletion(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
) (*openai.ChatCompletionStream, error) {
	completion, err := c.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:    openai.GPT3Dot5Turbo,
			Messages: messages,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "create chat completion stream")
	}
	return completion, nil
}

// Image is one generated picture. RevisedPrompt is the prompt DALL·E actually
// rendered after its own rewriting pass.
type Image struct {
	URL           string
	RevisedPrompt string
}

// GenerateImage renders the prompt with DALL·E 3 and returns the hosted URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	response, err := c.client.CreateImage(ctx, openai.ImageRequest{ //nolint:exhaustruct // this is better for readability
		Model:          openai.CreateImageModelDallE3,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return Image{}, errors.Wrap(err, "create image")
	}
	if len(response.Data) == 0 {
		return Image{}, errors.New("empty image response")
	}
	return Image{
		URL:           response.Data[0].URL,
		RevisedPrompt: response.Data[0].RevisedPrompt,
	}, nil
}
