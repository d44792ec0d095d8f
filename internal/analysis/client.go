package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultAPIURL      = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second

	systemPrompt = "You are an enterprise business intelligence assistant."
	emptyReply   = "AI returned no content."
)

// DevelopmentReply is returned instead of calling out when no API key is configured.
const DevelopmentReply = `{"summary":"No LLM API key is configured, this is a simulated reply.","recommendations":["Set llm.api_key to enable analysis"]}`

// Config selects the chat-completion endpoint. It is passed explicitly rather than read from the
// environment at call time. APIURL is the API base; a full .../chat/completions URL is accepted too.
type Config struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	c.APIURL = strings.TrimSuffix(strings.TrimRight(c.APIURL, "/"), "/chat/completions")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrUpstream marks a non-2xx reply from the completion endpoint.
var ErrUpstream = errors.New("llm api error")

// Client issues chat-completion requests against an OpenAI-compatible API.
type Client struct {
	cfg Config
	api *openai.Client
}

// NewClient builds a client from cfg. A nil cfg uses the defaults and, lacking a key, only ever
// returns DevelopmentReply.
func NewClient(cfg *Config) *Client {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	apiCfg := openai.DefaultConfig(c.APIKey)
	apiCfg.BaseURL = c.APIURL
	apiCfg.HTTPClient = &http.Client{Timeout: c.Timeout}
	return &Client{cfg: c, api: openai.NewClientWithConfig(apiCfg)}
}

// Complete sends one request with no retry and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.cfg.APIKey == "" {
		return DevelopmentReply, nil
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: float32(c.cfg.Temperature),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", upstreamError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return emptyReply, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %d - %s", ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %d - %v", ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("call llm api: %w", err)
}
