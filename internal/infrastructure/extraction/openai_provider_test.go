package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appingestion "github.com/clinicware/backend/internal/application/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validInvoiceJSON = `{"invoice_no":"INV-42","seller":{"name":"MedSupply Co","tax_id":"27AAAPL1234C1ZV"},"items":[{"description":"Paracetamol 500mg","quantity":10,"unit_price":5,"tax_amount":6}],"subtotal":50,"tax_amount":6,"total_amount":56}`

func testDoc() appingestion.Document {
	return appingestion.Document{
		Filename: "invoice.pdf",
		MIMEType: "application/pdf",
		Data:     []byte("%PDF-1.4 fake"),
	}
}

func chatReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	out, _ := json.Marshal(reply)
	return string(out)
}

func newOpenAIProvider(t *testing.T, url string) *OpenAIVisionProvider {
	t.Helper()
	p, err := NewOpenAIVisionProvider(ProviderConfig{
		BaseURL:         url,
		APIKey:          "test-key",
		Model:           "gpt-4o-mini",
		Timeout:         5 * time.Second,
		MaxOutputTokens: 1000,
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestOpenAIVisionProviderExtract(t *testing.T) {
	t.Run("parses fenced response", func(t *testing.T) {
		var gotReq chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Write([]byte(chatReply("```json\n" + validInvoiceJSON + "\n```")))
		}))
		defer srv.Close()

		p := newOpenAIProvider(t, srv.URL)
		inv, err := p.Extract(context.Background(), testDoc())
		require.NoError(t, err)
		assert.Equal(t, "INV-42", inv.InvoiceNo)
		assert.Equal(t, "MedSupply Co", inv.Seller.Name)

		// The file travels inline as a base64 data URL with MIME type
		require.Len(t, gotReq.Messages, 1)
		require.Len(t, gotReq.Messages[0].Content, 2)
		imagePart := gotReq.Messages[0].Content[1]
		require.NotNil(t, imagePart.ImageURL)
		assert.True(t, strings.HasPrefix(imagePart.ImageURL.URL, "data:application/pdf;base64,"))
		assert.Equal(t, 1000, gotReq.MaxTokens)
	})

	t.Run("compact retry recovers truncated output", func(t *testing.T) {
		var tokenBudgets []int
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			tokenBudgets = append(tokenBudgets, req.MaxTokens)
			calls++
			if calls == 1 {
				// Truncated mid-object, as a token-limited response looks
				w.Write([]byte(chatReply(`{"invoice_no":"INV-42","items":[{"desc`)))
				return
			}
			w.Write([]byte(chatReply(validInvoiceJSON)))
		}))
		defer srv.Close()

		p := newOpenAIProvider(t, srv.URL)
		inv, err := p.Extract(context.Background(), testDoc())
		require.NoError(t, err)
		assert.Equal(t, "INV-42", inv.InvoiceNo)
		require.Equal(t, 2, calls)
		assert.Equal(t, []int{1000, 2000}, tokenBudgets)
	})

	t.Run("unparseable after retry fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(chatReply("the image is too blurry to read")))
		}))
		defer srv.Close()

		p := newOpenAIProvider(t, srv.URL)
		_, err := p.Extract(context.Background(), testDoc())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compact retry")
	})

	t.Run("http error propagates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p := newOpenAIProvider(t, srv.URL)
		_, err := p.Extract(context.Background(), testDoc())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("config validation", func(t *testing.T) {
		_, err := NewOpenAIVisionProvider(ProviderConfig{APIKey: "k", Model: "m"}, zap.NewNop())
		assert.Error(t, err)
		_, err = NewOpenAIVisionProvider(ProviderConfig{BaseURL: "http://x", Model: "m"}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestGeminiVisionProviderExtract(t *testing.T) {
	t.Run("parses candidate parts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, ":generateContent")
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var req geminiRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Contents, 1)
			require.Len(t, req.Contents[0].Parts, 2)
			require.NotNil(t, req.Contents[0].Parts[1].InlineData)
			assert.Equal(t, "application/pdf", req.Contents[0].Parts[1].InlineData.MIMEType)

			reply := map[string]any{
				"candidates": []map[string]any{
					{"content": map[string]any{"parts": []map[string]any{{"text": validInvoiceJSON}}}},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(reply))
		}))
		defer srv.Close()

		p, err := NewGeminiVisionProvider(ProviderConfig{
			BaseURL: srv.URL,
			APIKey:  "test-key",
			Model:   "gemini-2.0-flash",
		}, zap.NewNop())
		require.NoError(t, err)

		inv, err := p.Extract(context.Background(), testDoc())
		require.NoError(t, err)
		assert.Equal(t, "INV-42", inv.InvoiceNo)
		require.Len(t, inv.Items, 1)
		assert.Equal(t, "10", inv.Items[0].Quantity.Decimal.String())
	})

	t.Run("empty candidates fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		p, err := NewGeminiVisionProvider(ProviderConfig{
			BaseURL: srv.URL, APIKey: "k", Model: "gemini-2.0-flash",
		}, zap.NewNop())
		require.NoError(t, err)

		_, err = p.Extract(context.Background(), testDoc())
		assert.Error(t, err)
	})
}
