package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appingestion "github.com/clinicware/backend/internal/application/ingestion"
	"github.com/clinicware/backend/internal/domain/ingestion"
	"go.uber.org/zap"
)

// ProviderConfig configures one vision provider endpoint
type ProviderConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

func (c *ProviderConfig) applyDefaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 4096
	}
}

// OpenAIVisionProvider extracts invoices through an OpenAI-compatible
// chat completions endpoint (OpenAI, OpenRouter, local gateways). The
// file travels inline as a base64 data URL tagged with its MIME type.
type OpenAIVisionProvider struct {
	cfg    ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIVisionProvider creates an OpenAI-compatible provider
func NewOpenAIVisionProvider(cfg ProviderConfig, logger *zap.Logger) (*OpenAIVisionProvider, error) {
	cfg.applyDefaults()
	if cfg.BaseURL == "" {
		return nil, errors.New("extraction provider base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("extraction provider API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("extraction provider model is required")
	}
	return &OpenAIVisionProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Name identifies the provider in upload records
func (p *OpenAIVisionProvider) Name() string {
	return "openai:" + p.cfg.Model
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract runs the extraction prompt and, if the first response does not
// parse, retries once with a compact prompt and a larger token budget to
// recover from truncated output
func (p *OpenAIVisionProvider) Extract(ctx context.Context, doc appingestion.Document) (*ingestion.StructuredInvoice, error) {
	content, err := p.complete(ctx, doc, extractionPrompt, p.cfg.MaxOutputTokens)
	if err != nil {
		return nil, err
	}
	inv, parseErr := decodeInvoice(content)
	if parseErr == nil {
		return inv, nil
	}

	p.logger.Warn("provider response did not parse, retrying compact",
		zap.String("provider", p.Name()),
		zap.Error(parseErr),
	)
	content, err = p.complete(ctx, doc, compactPrompt, p.cfg.MaxOutputTokens*2)
	if err != nil {
		return nil, err
	}
	inv, retryErr := decodeInvoice(content)
	if retryErr != nil {
		return nil, fmt.Errorf("unparseable response after compact retry: %w", retryErr)
	}
	return inv, nil
}

func (p *OpenAIVisionProvider) complete(ctx context.Context, doc appingestion.Document, prompt string, maxTokens int) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", documentMIME(doc),
		base64.StdEncoding.EncodeToString(doc.Data))

	body, err := json.Marshal(chatRequest{
		Model:     p.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode,
			strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("malformed provider envelope: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// documentMIME falls back to a filename-based guess when the upload
// carried no content type
func documentMIME(doc appingestion.Document) string {
	if doc.MIMEType != "" {
		return doc.MIMEType
	}
	name := strings.ToLower(doc.Filename)
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(name, ".webp"):
		return "image/webp"
	default:
		return "application/pdf"
	}
}

var _ appingestion.InvoiceExtractor = (*OpenAIVisionProvider)(nil)
