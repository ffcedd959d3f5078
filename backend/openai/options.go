package openai

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// FunctionalOption is a function that configures a Client instance
type FunctionalOption func(*Client) error

// WithEndpoint overrides the chat completions URL.
func WithEndpoint(endpoint string) FunctionalOption {
	return func(c *Client) error {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", endpoint)
		}
		c.endpoint = endpoint
		return nil
	}
}

// WithCredential replaces the credential carried by each request. Empty
// keeps the request's own credential.
func WithCredential(key string) FunctionalOption {
	return func(c *Client) error {
		c.credential = key
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) FunctionalOption {
	return func(c *Client) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithLogHandler sets the log handler for the client.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Client) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		return nil
	}
}
