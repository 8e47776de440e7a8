package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
	MaxOutputTokens  int    `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient talks to the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	baseURL      string
	http         *http.Client
}

func NewGeminiClient(apiKey, defaultModel string) *GeminiClient {
	return &GeminiClient{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		baseURL:      geminiBaseURL,
		http:         &http.Client{Timeout: 60 * time.Second},
	}
}

var _ interfaces.AIClient = (*GeminiClient)(nil)

func (g *GeminiClient) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini: api key not configured")
	}
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	payload := geminiRequest{GenerationConfig: &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == entities.RoleAssistant {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Content}}})
	}
	payload.Contents = append(payload.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}})
	if req.JSON {
		payload.GenerationConfig.ResponseMIMEType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// not in the URL: transport errors echo it
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini: status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// TelegramNotifier sends Markdown alerts through a bot. Without a token it
// drops every message.
type TelegramNotifier struct {
	Bot *tgbotapi.BotAPI
	log zerolog.Logger
}

func NewTelegramNotifier(token string, log zerolog.Logger) *TelegramNotifier {
	n := &TelegramNotifier{log: log}
	if token == "" {
		return n
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn().Err(err).Msg("telegram bot token rejected, notifications disabled")
		return n
	}
	n.Bot = bot
	return n
}

var _ interfaces.Notifier = (*TelegramNotifier)(nil)

func (t *TelegramNotifier) Notify(_ context.Context, chatID, text string) error {
	if t.Bot == nil || chatID == "" {
		return nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = t.Bot.Send(msg)
	return err
}

// EscapeMarkdown escapes user text for a Notify message.
func EscapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
