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

	appingestion "github.com/clinicware/backend/internal/application/ingestion"
	"github.com/clinicware/backend/internal/domain/ingestion"
	"go.uber.org/zap"
)

// GeminiVisionProvider extracts invoices through the Google Generative
// Language generateContent endpoint. The file travels as inline base64
// with its MIME type.
type GeminiVisionProvider struct {
	cfg    ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiVisionProvider creates a Gemini provider
func NewGeminiVisionProvider(cfg ProviderConfig, logger *zap.Logger) (*GeminiVisionProvider, error) {
	cfg.applyDefaults()
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.APIKey == "" {
		return nil, errors.New("extraction provider API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("extraction provider model is required")
	}
	return &GeminiVisionProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Name identifies the provider in upload records
func (p *GeminiVisionProvider) Name() string {
	return "gemini:" + p.cfg.Model
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int    `json:"maxOutputTokens"`
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract runs the extraction prompt with a compact retry on parse
// failure, mirroring the OpenAI adapter
func (p *GeminiVisionProvider) Extract(ctx context.Context, doc appingestion.Document) (*ingestion.StructuredInvoice, error) {
	content, err := p.generate(ctx, doc, extractionPrompt, p.cfg.MaxOutputTokens)
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
	content, err = p.generate(ctx, doc, compactPrompt, p.cfg.MaxOutputTokens*2)
	if err != nil {
		return nil, err
	}
	inv, retryErr := decodeInvoice(content)
	if retryErr != nil {
		return nil, fmt.Errorf("unparseable response after compact retry: %w", retryErr)
	}
	return inv, nil
}

func (p *GeminiVisionProvider) generate(ctx context.Context, doc appingestion.Document, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{
					MIMEType: documentMIME(doc),
					Data:     base64.StdEncoding.EncodeToString(doc.Data),
				}},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens:  maxTokens,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.cfg.BaseURL, p.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
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

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("malformed provider envelope: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("provider returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

var _ appingestion.InvoiceExtractor = (*GeminiVisionProvider)(nil)
