package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// MaxChatHistory is how many trailing messages are forwarded upstream.
const MaxChatHistory = 20

const defaultSystemPrompt = `You are "MoodMetrics Psych Consultant", a supportive psychological consultant inside a workplace wellbeing app.
Answer in the user's language (Russian or English). Keep the tone calm, respectful and practical.
Only help with wellbeing topics: stress, anxiety, burnout, motivation, sleep hygiene, work-life balance, emotions, communication, conflict, boundaries, coping techniques.
For anything else, refuse in one sentence and offer 2-3 wellbeing angles instead.
You are not a doctor: never diagnose or advise on medication. If the user mentions self-harm or immediate danger, respond with empathy and urge them to contact local emergency services or a trusted person right away.
Prefer short structured answers with 1-5 actionable steps. No markdown tables.`

// ChatConfig points the proxy at an OpenAI-compatible completions endpoint.
type ChatConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetryTime time.Duration `mapstructure:"max_retry_time"`
}

// ChatMessage is one turn of the conversation as sent by the client.
// Content is left untyped so non-string payloads can be filtered out.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type upstreamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string            `json:"model"`
	Temperature float64           `json:"temperature"`
	Messages    []upstreamMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message upstreamMessage `json:"message"`
	} `json:"choices"`
}

// ChatService is a thin pass-through to the completion API. It keeps no
// conversation state.
type ChatService struct {
	cfg    ChatConfig
	client *http.Client
	log    *zap.Logger
}

func NewChatService(cfg ChatConfig, log *zap.Logger) *ChatService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Enabled reports whether an API key is configured.
func (s *ChatService) Enabled() bool { return s.cfg.APIKey != "" }

// sanitizeHistory keeps user/assistant turns with string content, capped to
// the last MaxChatHistory entries.
func sanitizeHistory(in []ChatMessage) []upstreamMessage {
	out := make([]upstreamMessage, 0, len(in))
	for _, m := range in {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		text, ok := m.Content.(string)
		if !ok {
			continue
		}
		out = append(out, upstreamMessage{Role: m.Role, Content: text})
	}
	if len(out) > MaxChatHistory {
		out = out[len(out)-MaxChatHistory:]
	}
	return out
}

// Reply forwards the conversation and returns the assistant's text. Network
// failures and 5xx answers are retried with exponential backoff; 4xx answers
// fail at once.
func (s *ChatService) Reply(ctx context.Context, history []ChatMessage) (string, error) {
	if !s.Enabled() {
		return "", ErrAINotConfigured
	}
	msgs := append([]upstreamMessage{{Role: "system", Content: s.cfg.SystemPrompt}}, sanitizeHistory(history)...)
	payload, err := json.Marshal(completionRequest{Model: s.cfg.Model, Temperature: s.cfg.Temperature, Messages: msgs})
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"

	var text string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warn("ai upstream request failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			s.log.Warn("ai upstream body read failed", zap.Error(err))
			return fmt.Errorf("read upstream response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			s.log.Warn("ai upstream error", zap.Int("status", resp.StatusCode))
			return fmt.Errorf("upstream status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("upstream status %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}

		var parsed completionResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode upstream response: %w", err))
		}
		if len(parsed.Choices) > 0 {
			text = parsed.Choices[0].Message.Content
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.cfg.MaxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		s.log.Error("ai chat failed", zap.Error(err))
		return "", NewBadGatewayError("AI error")
	}
	return text, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
