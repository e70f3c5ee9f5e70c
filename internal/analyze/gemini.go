package analyze

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash"

const extractionPrompt = `Extract fields from the receipt image and answer with strict JSON only. Keys:
amount (number), attendees (string, comma-separated names), occasion (string),
payment_method (string: Company Card | Personal Reimbursement | Cash | Other),
date (YYYY-MM-DD), category (string), name (string), vat_rate (number), currency (string).
For category choose ONE of exactly: Travels, Meals, Supplies, Others.
For name suggest a short descriptive title such as "<Merchant> <context>".
For vat_rate ALWAYS choose ONE of exactly 8.1, 2.6 or 3.8 per Swiss VAT.
Heuristics: accommodation/hotel = 3.8; grocery, food retail, books, news, water or
medicines = 2.6; restaurant, cafe and hospitality services = 8.1; alcohol always 8.1.
If a VAT percentage is printed use it (8 or 8.1 -> 8.1; 2.5 or 2.6 -> 2.6; 3.7 or 3.8 -> 3.8),
otherwise infer it from the merchant and products, and default to 8.1 when ambiguous.
For currency choose ONE of exactly USD, CHF, Euro, CAD; use an empty string when unknown.
For unknown fields use an empty string, or 0 for amount.`

// Gemini implements Analyzer on top of the Google Gemini vision API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini builds a Gemini analyzer. modelName falls back to a sensible
// default when empty.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	return &Gemini{client: client, model: model}, nil
}

// AnalyzeReceipt sends the receipt image to the model and normalizes the
// extracted fields.
func (g *Gemini) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(extractionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Extraction{}, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Extraction{}, fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return parseExtraction(text.String())
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// imageFormat maps a MIME type onto the bare format suffix genai expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if format == "" || strings.Contains(format, "/") {
		return "jpeg"
	}
	return format
}
