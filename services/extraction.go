package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"belegflow-backend/ledger"
	"belegflow-backend/logger"
)

// ExtractedLineItem is one priced row returned by the model. Numeric fields
// arrive as json.RawMessage-ish loose values; they are normalized through
// ledger.ParseNumber so malformed output degrades to 0 instead of failing.
type ExtractedLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// ExtractedReceipt is the structured result of AI field extraction.
type ExtractedReceipt struct {
	VendorName    string              `json:"vendor_name"`
	Date          string              `json:"date"`
	ReceiptNumber string              `json:"receipt_number"`
	Type          string              `json:"type"` // "expense" | "income"
	Category      string              `json:"category"`
	PaymentMethod string              `json:"payment_method"`
	Currency      string              `json:"currency"`
	VatAmount     float64             `json:"vat_amount"`
	TotalAmount   float64             `json:"total_amount"`
	Notes         string              `json:"notes"`
	LineItems     []ExtractedLineItem `json:"line_items"`

	// Raw is the verbatim model output, kept for audit.
	Raw json.RawMessage `json:"-"`
}

// ExtractionService turns a receipt image/PDF into structured fields using
// a chat-completion model behind an OpenAI-compatible endpoint (Gemini's
// compatibility API in production).
type ExtractionService interface {
	ExtractFromURL(ctx context.Context, fileURL, contentType string) (*ExtractedReceipt, error)
}

type geminiExtractionService struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewExtractionService builds the production extraction client. baseURL
// points at the OpenAI-compatible endpoint; model names the Gemini model.
func NewExtractionService(baseURL, apiKey, model string) ExtractionService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &geminiExtractionService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.WithComponent("extraction"),
	}
}

const extractionPrompt = `You are a bookkeeping assistant. Extract the fields of the receipt in the image
and answer with a single JSON object, no markdown, no commentary:
{
  "vendor_name": string,
  "date": "YYYY-MM-DD",
  "receipt_number": string,
  "type": "expense" or "income",
  "category": string,
  "payment_method": string,
  "currency": ISO 4217 code,
  "vat_amount": number,
  "total_amount": number,
  "notes": string,
  "line_items": [{"description": string, "quantity": number, "unit_price": number, "total": number}]
}
Use 0 for unreadable numbers and "" for unreadable text. Quantities and prices
may be negative for refunds or credits.`

func (s *geminiExtractionService) ExtractFromURL(ctx context.Context, fileURL, contentType string) (*ExtractedReceipt, error) {
	s.log.Info().Str("content_type", contentType).Msg("requesting receipt extraction")

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractionPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: fileURL},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	extracted, err := ParseExtractionJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("vendor", extracted.VendorName).
		Float64("total", extracted.TotalAmount).
		Int("line_items", len(extracted.LineItems)).
		Msg("extraction completed")

	return extracted, nil
}

// ParseExtractionJSON parses a model answer into an ExtractedReceipt. The
// answer may be wrapped in markdown fences and may contain string-typed
// numbers; both are tolerated. Only a structurally unparseable answer errors.
func ParseExtractionJSON(answer string) (*ExtractedReceipt, error) {
	cleaned := strings.TrimSpace(answer)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Decode into a loose shape first so "12.50" (string) and 12.5 (number)
	// both survive; numbers then go through ledger.ParseNumber.
	var loose struct {
		VendorName    string `json:"vendor_name"`
		Date          string `json:"date"`
		ReceiptNumber string `json:"receipt_number"`
		Type          string `json:"type"`
		Category      string `json:"category"`
		PaymentMethod string `json:"payment_method"`
		Currency      string `json:"currency"`
		VatAmount     any    `json:"vat_amount"`
		TotalAmount   any    `json:"total_amount"`
		Notes         string `json:"notes"`
		LineItems     []struct {
			Description string `json:"description"`
			Quantity    any    `json:"quantity"`
			UnitPrice   any    `json:"unit_price"`
			Total       any    `json:"total"`
		} `json:"line_items"`
	}
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		return nil, fmt.Errorf("extraction answer is not valid JSON: %w", err)
	}

	out := &ExtractedReceipt{
		VendorName:    strings.TrimSpace(loose.VendorName),
		Date:          strings.TrimSpace(loose.Date),
		ReceiptNumber: strings.TrimSpace(loose.ReceiptNumber),
		Type:          strings.ToLower(strings.TrimSpace(loose.Type)),
		Category:      strings.TrimSpace(loose.Category),
		PaymentMethod: strings.TrimSpace(loose.PaymentMethod),
		Currency:      strings.ToUpper(strings.TrimSpace(loose.Currency)),
		VatAmount:     ledger.ParseNumber(loose.VatAmount),
		TotalAmount:   ledger.ParseNumber(loose.TotalAmount),
		Notes:         strings.TrimSpace(loose.Notes),
		Raw:           json.RawMessage(cleaned),
	}
	if out.Type != "income" {
		out.Type = "expense"
	}
	for _, li := range loose.LineItems {
		out.LineItems = append(out.LineItems, ExtractedLineItem{
			Description: strings.TrimSpace(li.Description),
			Quantity:    ledger.ParseNumber(li.Quantity),
			UnitPrice:   ledger.ParseNumber(li.UnitPrice),
			Total:       ledger.ParseNumber(li.Total),
		})
	}
	return out, nil
}
