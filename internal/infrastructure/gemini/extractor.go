package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"kesef/internal/domain/document"
	"kesef/internal/domain/extraction"
	"kesef/internal/domain/transaction"
)

const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Extractor implements extraction.Extractor with a Gemini model.
type Extractor struct {
	models generator
	model  string
}

func NewExtractor(ctx context.Context, apiKey, model string) (*Extractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newExtractor(client.Models, model), nil
}

func newExtractor(models generator, model string) *Extractor {
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{models: models, model: model}
}

func (e *Extractor) Extract(ctx context.Context, doc *document.Document, content []byte) (*extraction.Extraction, error) {
	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(doc.Type)},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: content}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, extraction.ErrEmptyDocument
	}

	ext, err := extraction.DecodeModelOutput([]byte(cleanModelJSON(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return ext, nil
}

func buildPrompt(docType string) string {
	var b strings.Builder
	b.WriteString("You extract transactions from Israeli financial documents (Hebrew or English).\n\n")
	fmt.Fprintf(&b, "Document type: %s\n\n", docType)
	b.WriteString("Return STRICT JSON only, an object with:\n")
	b.WriteString("- \"transactions\": array of objects with fields\n")
	b.WriteString("  \"amount\" (positive number), \"vendor\" (string), \"date\" (\"YYYY-MM-DD\"),\n")
	b.WriteString("  \"type\" (\"expense\" or \"income\"), \"currency\" (ISO code, default \"ILS\"),\n")
	b.WriteString("  \"category\", \"detailed_category\", \"expense_type\" (\"fixed\", \"variable\" or \"special\"),\n")
	b.WriteString("  \"payment_method\", \"notes\", \"confidence\" (0 to 1),\n")
	b.WriteString("  \"is_summary\" (true when the row is a monthly credit card charge)\n")
	if docType == document.TypeCreditStatement {
		b.WriteString("- \"billing\": object with \"next_billing_date\" (\"DD/MM/YYYY\"), \"next_billing_amount\" (number)\n")
		b.WriteString("  and \"card_last4\" (last four card digits), or null when not printed\n")
	}
	b.WriteString("\nUse one of these category keys when possible: ")
	b.WriteString(strings.Join(categoryKeys(), ", "))
	b.WriteString(".\nUse null for anything you cannot read. Do NOT wrap the response in code fences.\n")
	return b.String()
}

func categoryKeys() []string {
	keys := make([]string, 0, len(transaction.Categories))
	for _, c := range transaction.SortedCategories() {
		keys = append(keys, c.Key)
	}
	return keys
}

// cleanModelJSON strips Markdown fences and any prose around the JSON value.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
