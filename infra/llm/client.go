// Package llm classifies incident severity with an OpenAI-compatible chat
// completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/erdispatch/auth"
	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/calllog"
	"github.com/kilianp07/erdispatch/infra/logger"
)

const (
	DefaultBaseURL     = "https://api.sambanova.ai/v1"
	DefaultModel       = "Meta-Llama-3.1-8B-Instruct"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.1

	systemPrompt = "You are an emergency triage assistant. Classify the severity of the reported incident. " +
		`Answer only with a JSON object of the form {"severity": "High"|"Medium"|"Low"}.`
)

// ErrNoAnswer is returned when the completion holds no usable JSON object.
var ErrNoAnswer = errors.New("llm: no severity in answer")

// Config configures the chat client.
type Config struct {
	BaseURL     string
	Model       string
	Auth        auth.Conf
	Timeout     time.Duration
	Temperature float64
	TopP        float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client implements assessment.Provider.
type Client struct {
	http     *http.Client
	endpoint string
	model    string
	temp     float64
	topP     float64
	store    calllog.Store
	log      logger.Logger
}

// New builds a Client. Calls are audited to store when it is non-nil.
func New(ctx context.Context, cfg Config, store calllog.Store) (*Client, error) {
	cli, err := auth.NewHTTPClient(ctx, cfg.Auth, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}
	if store == nil {
		store = calllog.NopStore{}
	}
	return &Client{
		http:     cli,
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
		model:    cfg.Model,
		temp:     cfg.Temperature,
		topP:     cfg.TopP,
		store:    store,
		log:      logger.New("llm"),
	}, nil
}

// Name implements assessment.Strategy.
func (c *Client) Name() string { return "llm" }

// Classify asks the model for a severity. The answer is returned unparsed;
// the assessor decides whether it is usable.
func (c *Client) Classify(ctx context.Context, req assessment.Request) (assessment.Response, error) {
	start := time.Now()
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Category: %s\nDescription: %s", req.Category, req.Description)},
		},
		Temperature: c.temp,
		TopP:        c.topP,
	}
	out, raw, err := c.do(ctx, body)
	calllog.Write(ctx, c.store, c.log, calllog.NewRecord(c.Name(), start, body, raw, err))
	if err != nil {
		return assessment.Response{}, err
	}
	if len(out.Choices) == 0 {
		return assessment.Response{}, ErrNoAnswer
	}
	content := out.Choices[0].Message.Content
	sev, err := extractSeverity(content)
	if err != nil {
		return assessment.Response{Raw: content}, err
	}
	return assessment.Response{Severity: sev, Raw: content}, nil
}

func (c *Client) do(ctx context.Context, body chatRequest) (chatResponse, json.RawMessage, error) {
	var out chatResponse
	payload, err := json.Marshal(body)
	if err != nil {
		return out, nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return out, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return out, nil, fmt.Errorf("llm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return out, nil, fmt.Errorf("llm read body: %w", err)
	}
	var raw json.RawMessage
	if json.Valid(data) {
		raw = data
	}
	if resp.StatusCode/100 != 2 {
		return out, raw, fmt.Errorf("llm call failed: %s", resp.Status)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, raw, fmt.Errorf("llm decode: %w", err)
	}
	return out, raw, nil
}

// extractSeverity reads {"severity": ...} from a completion, tolerating
// surrounding prose or code fences.
func extractSeverity(content string) (string, error) {
	i := strings.Index(content, "{")
	j := strings.LastIndex(content, "}")
	if i < 0 || j < i {
		return "", ErrNoAnswer
	}
	var ans struct {
		Severity string `json:"severity"`
	}
	if err := json.Unmarshal([]byte(content[i:j+1]), &ans); err != nil || ans.Severity == "" {
		return "", ErrNoAnswer
	}
	return ans.Severity, nil
}
