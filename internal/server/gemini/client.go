// Package gemini calls the Gemini generateContent endpoint for the two
// collaborators that need it: OCR of page screenshots and dark-pattern
// analysis of extracted text. Both go through netx's retry policy.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/netx"
)

// MaxAnalysisRunes bounds how much text is sent for analysis.
const MaxAnalysisRunes = 2000

var (
	ErrNotConfigured = errors.New("gemini api key not configured")
	ErrEmptyImage    = errors.New("image is required")
)

const ocrPrompt = "Extract all visible text from this image. Return only the text content, no additional commentary."

const analysisPrompt = `Analyze the following text extracted from a webpage and identify any dark patterns.

Dark patterns to detect:
1. Urgency manipulation: countdown timers, limited stock claims, pressure language
2. Misdirection: hidden costs, confusing navigation, disguised advertisements
3. Social proof manipulation: fake reviews, inflated popularity claims, fabricated scarcity
4. Obstruction: difficult unsubscribe processes, hidden cancellation options, forced continuity

Text to analyze:
%s

Respond in JSON format with:
{
    "detected": true/false,
    "pattern_type": "urgency_manipulation|misdirection|social_proof_manipulation|obstruction|other",
    "confidence_score": 0.0-1.0,
    "description": "brief description of the detected pattern",
    "affected_elements": ["list of text snippets that contain the pattern"]
}

If no dark pattern is detected, set "detected" to false and confidence_score to 0.0.`

// Analysis is the decoded verdict for one piece of text.
type Analysis struct {
	Detected         bool     `json:"detected"`
	PatternType      string   `json:"pattern_type"`
	ConfidenceScore  float64  `json:"confidence_score"`
	Description      string   `json:"description"`
	AffectedElements []string `json:"affected_elements"`
}

// NoPattern is returned when the model gave no usable answer.
func NoPattern() *Analysis {
	return &Analysis{
		PatternType:      "other",
		Description:      "No pattern detected",
		AffectedElements: []string{},
	}
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Config describes where and how the client calls Gemini.
type Config struct {
	URL        string
	APIKey     string
	OCRPolicy  netx.Policy
	AIPolicy   netx.Policy
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	ocr      *netx.Caller
	ai       *netx.Caller
	logger   logging.Logger
}

func NewClient(cfg Config, logger logging.Logger) *Client {
	return &Client{
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		ocr:      netx.NewCaller(cfg.HTTPClient, cfg.OCRPolicy, logger.With("call", "ocr")),
		ai:       netx.NewCaller(cfg.HTTPClient, cfg.AIPolicy, logger.With("call", "analysis")),
		logger:   logger.With("module", "gemini"),
	}
}

func (c *Client) url() (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid gemini url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExtractText returns the text visible in a JPEG image. An answer without
// candidates is an empty string, not an error.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	endpoint, err := c.url()
	if err != nil {
		return "", err
	}

	req := generateRequest{Contents: []content{{Parts: []part{
		{InlineData: &inlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: ocrPrompt},
	}}}}

	resp, err := c.ocr.PostJSON(ctx, endpoint, req)
	if err != nil {
		return "", err
	}

	text := firstText(resp.Body)
	c.logger.Debug(ctx, "ocr completed", "attempts", resp.Attempts, "chars", utf8.RuneCountInString(text))
	return text, nil
}

// AnalyzeText asks the model whether text contains a dark pattern. Input
// beyond MaxAnalysisRunes is cut off. When the answer carries no parsable
// JSON object the result is NoPattern.
func (c *Client) AnalyzeText(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return NoPattern(), nil
	}
	endpoint, err := c.url()
	if err != nil {
		return nil, err
	}

	req := generateRequest{Contents: []content{{Parts: []part{
		{Text: fmt.Sprintf(analysisPrompt, truncateRunes(text, MaxAnalysisRunes))},
	}}}}

	resp, err := c.ai.PostJSON(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	a := NoPattern()
	a.Description = ""
	if !netx.DecodeEmbedded(firstText(resp.Body), a) {
		return NoPattern(), nil
	}
	a.normalize()

	c.logger.Debug(ctx, "analysis completed", "attempts", resp.Attempts, "detected", a.Detected, "pattern_type", a.PatternType)
	return a, nil
}

func (a *Analysis) normalize() {
	if a.PatternType == "" {
		a.PatternType = "other"
	}
	if a.AffectedElements == nil {
		a.AffectedElements = []string{}
	}
	switch {
	case a.ConfidenceScore < 0:
		a.ConfidenceScore = 0
	case a.ConfidenceScore > 1:
		a.ConfidenceScore = 1
	}
}

// firstText returns candidates[0].content.parts[0].text, or "".
func firstText(body []byte) string {
	var r generateResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
