// internal/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// TriviaPair is one generated question with its expected answer.
type TriviaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Turn is one entry of bounded chat context handed to the model.
// FromBot marks messages the bot itself produced (assistant role).
type Turn struct {
	FromBot bool
	Text    string
}

// ErrEmptyCompletion indicates the model returned no usable text.
var ErrEmptyCompletion = errors.New("genai: empty completion")

const (
	triviaPrompt = `You are a trivia game host. Generate a single, random trivia question ` +
		`with a concise, one or two-word answer. Provide the output *only* in JSON format ` +
		`like this: {"question": "What is the capital of Canada?", "answer": "Ottawa"}. ` +
		`Do not include any other text, explanation, or markdown formatting.`
	replyPrompt = `You are a friendly game chat bot.`

	replyMaxTokens  = 60
	triviaMaxTokens = 200
)

// Client wraps the Anthropic messages API behind the two operations the
// lobby service needs: trivia pair generation and short chat replies.
type Client struct {
	api   anthropic.Client
	model anthropic.Model
	log   *logrus.Logger
}

// New builds a Client. The key is not validated here; a bad or missing key
// surfaces as a request error on first use, which callers treat as a
// generation failure.
func New(apiKey, model string, log *logrus.Logger) *Client {
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: anthropic.Model(model),
		log:   log,
	}
}

// Trivia requests one question/answer pair. Malformed or partial model
// output is reported as an error, never as a half-filled pair.
func (c *Client) Trivia(ctx context.Context) (TriviaPair, error) {
	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: triviaMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: triviaPrompt},
		},
		Temperature: anthropic.Float(1.0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Generate the trivia question now.")),
		},
	})
	if err != nil {
		return TriviaPair{}, fmt.Errorf("genai: trivia request: %w", err)
	}
	return ParseTriviaPair(firstText(resp))
}

// Reply generates a short bot message from the recent conversation turns.
func (c *Client) Reply(ctx context.Context, turns []Turn) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	opensWithBot := false
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		if t.FromBot {
			if len(msgs) == 0 {
				opensWithBot = true
			}
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	if len(msgs) == 0 {
		return "", ErrEmptyCompletion
	}
	// The API requires the transcript to open with a user turn.
	if opensWithBot {
		msgs = append([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("(joined the chat)")),
		}, msgs...)
	}

	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: replyMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: replyPrompt},
		},
		Temperature: anthropic.Float(0.7),
		Messages:    msgs,
	})
	if err != nil {
		return "", fmt.Errorf("genai: reply request: %w", err)
	}
	reply := strings.TrimSpace(firstText(resp))
	if reply == "" {
		return "", ErrEmptyCompletion
	}
	return reply, nil
}

// ParseTriviaPair decodes the model's JSON trivia output. Models sometimes
// wrap the object in code fences or prose despite the prompt, so the parser
// extracts the outermost JSON object before decoding.
func ParseTriviaPair(raw string) (TriviaPair, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return TriviaPair{}, fmt.Errorf("genai: no JSON object in trivia output %q", raw)
	}

	var pair TriviaPair
	if err := json.Unmarshal([]byte(raw[start:end+1]), &pair); err != nil {
		return TriviaPair{}, fmt.Errorf("genai: decode trivia output: %w", err)
	}
	pair.Question = strings.TrimSpace(pair.Question)
	pair.Answer = strings.TrimSpace(pair.Answer)
	if pair.Question == "" || pair.Answer == "" {
		return TriviaPair{}, fmt.Errorf("genai: trivia output missing question or answer: %q", raw)
	}
	return pair, nil
}

// firstText concatenates the text blocks of a response.
func firstText(msg *anthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
