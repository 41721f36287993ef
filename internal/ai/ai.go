/*
Package ai generates filing synopses with the Gemini API. The model is
treated as an opaque text-in/text-out collaborator: callers always fall
back to the deterministic heuristic summary when it fails or returns
low-quality output.
*/
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// maxPromptChars bounds the filing text sent to the model.
const maxPromptChars = 25_000

const systemInstruction = "Summarize this ETF filing for a financial reporter. " +
	"Include: Fund Name, Ticker (if present), Expense Ratio, and a 2-sentence " +
	"breakdown of the investment strategy. If it's a crypto ETF, specifically " +
	"highlight the custodian. Format each field as a 'Label: value' line."

// Summarizer produces a synopsis for filing text.
type Summarizer interface {
	Summarize(ctx context.Context, filingText string, isCrypto bool) (string, error)
}

// GeminiSummarizer calls the Gemini API.
type GeminiSummarizer struct {
	apiKey    string
	modelName string
}

// NewGeminiSummarizer returns a summarizer backed by the given model, or
// nil when no API key is configured (callers then use the fallback only).
func NewGeminiSummarizer(apiKey, modelName string) *GeminiSummarizer {
	if apiKey == "" {
		return nil
	}
	return &GeminiSummarizer{apiKey: apiKey, modelName: modelName}
}

// Summarize sends the filing text to Gemini and returns the raw summary
// text. Empty model output is an error, never an empty synopsis.
func (s *GeminiSummarizer) Summarize(ctx context.Context, filingText string, isCrypto bool) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	text := filingText
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	cryptoContext := "no"
	if isCrypto {
		cryptoContext = "yes"
	}
	prompt := fmt.Sprintf("Crypto ETF context: %s\n\nFiling text:\n%s", cryptoContext, text)

	contents := []*genai.Content{
		{Role: "system", Parts: []*genai.Part{{Text: systemInstruction}}},
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := client.Models.GenerateContent(ctx, s.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	respText := strings.TrimSpace(resp.Text())
	if respText == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return respText, nil
}
