// Package openai streams chat completions through the OpenAI Go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/robbyt/go-hihi/backend"
	"github.com/robbyt/go-hihi/internal/helpers"
)

const (
	// DefaultEndpoint is the chat completions URL used when none is configured.
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

	// CredentialEnv overrides any configured or embedded API key.
	CredentialEnv = "OPENAI_API_KEY"

	// BaseURLEnv overrides the endpoint at run time. It names the API root,
	// e.g. "http://localhost:8080/v1".
	BaseURLEnv = "OPENAI_BASE_URL"
)

const completionsPath = "/chat/completions"

type Client struct {
	endpoint   string
	credential string
	httpClient *http.Client
	sdk        openai.Client

	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a streaming chat completions client.
func New(opts ...FunctionalOption) (*Client, error) {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying client option: %w", err)
		}
	}
	c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "backend", "OpenAI")

	// the endpoint setting replaces whatever the SDK picked up from the
	// environment; retries would replay a partially streamed reply
	c.sdk = openai.NewClient(
		option.WithBaseURL(baseURL(c.endpoint)),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
	return c, nil
}

// EndpointFromBaseURL appends the chat completions path to an API root.
func EndpointFromBaseURL(base string) string {
	return strings.TrimRight(base, "/") + completionsPath
}

// baseURL is the inverse of EndpointFromBaseURL. An endpoint without the
// completions path is taken as the API root.
func baseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimRight(endpoint, "/"), completionsPath) + "/"
}

func (c *Client) String() string {
	return "openai.Client{Endpoint: " + c.endpoint + "}"
}

// Stream sends one request and yields content deltas as they arrive.
func (c *Client) Stream(ctx context.Context, req backend.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if c.credential != "" {
			req.Credential = c.credential
		}
		if req.Credential == "" {
			yield("", fmt.Errorf("%w: %w", backend.ErrBackend, ErrCredentialMissing))
			return
		}

		c.logger.DebugContext(ctx, "sending request",
			"endpoint", c.endpoint,
			"model", req.Model,
			"instructions", len(req.Instructions),
		)
		stream := c.sdk.Chat.Completions.NewStreaming(ctx, params(req), option.WithAPIKey(req.Credential))
		defer func() {
			if err := stream.Close(); err != nil {
				c.logger.WarnContext(ctx, "failed to close response stream", "error", err)
			}
		}()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", wrapError(err))
		}
	}
}

func params(req backend.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt()))
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
}

// wrapError turns an SDK status error into an APIError. Transport failures
// keep their cause.
func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Message
		if body == "" {
			body = apiErr.Error()
		}
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Status:     fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
			Body:       body,
		}
	}
	return fmt.Errorf("%w: %w", backend.ErrBackend, err)
}
