package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/verification"
)

// DefaultModel balances accuracy against cost. The lite tier confuses
// pad dimensions with pitch too often to be the default.
const DefaultModel = "gemini-2.5-flash"

// modelAliases maps short names accepted by the API and CLI to full
// model identifiers.
var modelAliases = map[string]string{
	"flash-lite": "gemini-2.5-flash-lite",
	"flash":      "gemini-2.5-flash",
	"pro":        "gemini-2.5-pro",
}

const (
	maxOutputTokens       = 4096
	stage1MaxOutputTokens = 2048
	detectMaxOutputTokens = 1024
	verifyMaxOutputTokens = 1024
)

// SupportedMediaTypes lists the image MIME types the vision API accepts.
var SupportedMediaTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// SupportedMediaType reports whether the API accepts the given MIME type.
func SupportedMediaType(mediaType string) bool {
	for _, t := range SupportedMediaTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}

// ResolveModel expands a model alias to its full identifier. Unknown
// names pass through unchanged so callers can pin exact versions.
func ResolveModel(name string) string {
	if name == "" {
		return DefaultModel
	}
	if full, ok := modelAliases[name]; ok {
		return full
	}
	return name
}

// Usage accumulates token counts across one or more API calls.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

func (u *Usage) add(meta *genai.GenerateContentResponseUsageMetadata) {
	if meta == nil {
		return
	}
	u.InputTokens += int(meta.PromptTokenCount)
	u.OutputTokens += int(meta.CandidatesTokenCount)
}

// Response is the outcome of a successful extraction call.
type Response struct {
	Footprint *models.Footprint
	Result    *models.ExtractionResult
	ModelUsed string
	Usage     Usage
}

// StandardPackage is the outcome of standard package detection.
type StandardPackage struct {
	IsStandard    bool               `json:"is_standard"`
	PackageCode   *string            `json:"package_code"`
	Confidence    float64            `json:"confidence"`
	IPCParameters map[string]float64 `json:"ipc_parameters"`
	Reason        *string            `json:"reason"`
	Usage         Usage              `json:"-"`
}

// Config holds client construction parameters.
type Config struct {
	// APIKey authenticates with the Gemini API. Falls back to the
	// GEMINI_API_KEY environment variable when empty.
	APIKey string
	// Model is a model name or alias. Defaults to DefaultModel.
	Model string
	// IncludeExamples adds few-shot examples to the extraction prompt.
	IncludeExamples bool
}

// Client extracts PCB footprint data from datasheet images using the
// Gemini vision API. It also implements verification.Corrector so the
// verification pass can reuse the same connection.
type Client struct {
	client          *genai.Client
	model           string
	includeExamples bool
}

var _ verification.Corrector = (*Client)(nil)

// NewClient creates a vision extraction client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key required: set GEMINI_API_KEY or configure extraction.api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:          client,
		model:           ResolveModel(cfg.Model),
		includeExamples: cfg.IncludeExamples,
	}, nil
}

// Model returns the resolved model identifier in use.
func (c *Client) Model() string {
	return c.model
}

// ExtractOptions are per-request extraction knobs.
type ExtractOptions struct {
	// Model overrides the client's configured model for this call.
	Model string
	// Staged runs the two-stage pipeline instead of single-pass.
	Staged bool
	// Examples adds few-shot examples to the single-pass prompt.
	Examples bool
}

// Extract analyzes one or more datasheet images and returns the
// normalized footprint. Multiple images give the model
// cross-referencing context (dimension drawing plus table plus pin
// diagram).
func (c *Client) Extract(ctx context.Context, images []models.ImageData, opts ExtractOptions) (*Response, error) {
	if opts.Staged {
		return c.extractStaged(ctx, images)
	}
	return c.extractSinglePass(ctx, images, opts)
}

func (c *Client) extractSinglePass(ctx context.Context, images []models.ImageData, opts ExtractOptions) (*Response, error) {
	parts, err := imageParts(images)
	if err != nil {
		return nil, err
	}

	prompt := ExtractionPrompt(c.includeExamples || opts.Examples)
	if len(images) > 1 {
		prompt = multiImagePreamble(len(images)) + prompt
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	used := c.model
	if opts.Model != "" {
		used = ResolveModel(opts.Model)
	}

	var usage Usage
	text, err := c.generate(ctx, used, parts, maxOutputTokens, &usage)
	if err != nil {
		return nil, err
	}

	footprint, result, err := Normalize([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	return &Response{
		Footprint: footprint,
		Result:    result,
		ModelUsed: used,
		Usage:     usage,
	}, nil
}

// extractStaged runs the two-stage pipeline. Stage 1 parses the
// dimension table with the lite model; stage 2 extracts geometry with
// the stronger model using the parsed table as context. Separating the
// passes keeps each prompt focused and avoids pad-size/pitch confusion.
func (c *Client) extractStaged(ctx context.Context, images []models.ImageData) (*Response, error) {
	parts, err := imageParts(images)
	if err != nil {
		return nil, err
	}

	stage1Model := modelAliases["flash-lite"]
	stage2Model := c.model
	label := fmt.Sprintf("staged (%s+%s)", stage1Model, stage2Model)

	var usage Usage

	stage1Parts := append(append([]*genai.Part{}, parts...), genai.NewPartFromText(Stage1Prompt()))
	stage1Text, err := c.generate(ctx, stage1Model, stage1Parts, stage1MaxOutputTokens, &usage)
	if err != nil {
		return nil, fmt.Errorf("stage 1 failed: %w", err)
	}

	var analysis StageAnalysis
	if err := DecodeModelJSON(stage1Text, &analysis); err != nil {
		return nil, fmt.Errorf("stage 1 failed: could not parse table analysis: %w", err)
	}

	stage2Parts := append(append([]*genai.Part{}, parts...), genai.NewPartFromText(Stage2Prompt(&analysis)))
	stage2Text, err := c.generate(ctx, stage2Model, stage2Parts, maxOutputTokens, &usage)
	if err != nil {
		return nil, fmt.Errorf("stage 2 failed: %w", err)
	}

	footprint, result, err := Normalize([]byte(stage2Text))
	if err != nil {
		return nil, fmt.Errorf("stage 2 failed: could not parse geometry extraction: %w", err)
	}

	return &Response{
		Footprint: footprint,
		Result:    result,
		ModelUsed: label,
		Usage:     usage,
	}, nil
}

// DetectStandardPackage checks whether the image shows a standard
// IPC-7351 package. Cheaper than full extraction; lets the UI redirect
// users to the IPC wizard for known packages.
func (c *Client) DetectStandardPackage(ctx context.Context, img models.ImageData) (*StandardPackage, error) {
	if !SupportedMediaType(img.MediaType) {
		return nil, fmt.Errorf("unsupported media type: %s", img.MediaType)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MediaType),
		genai.NewPartFromText(StandardPackagePrompt()),
	}

	var usage Usage
	text, err := c.generate(ctx, c.model, parts, detectMaxOutputTokens, &usage)
	if err != nil {
		return nil, err
	}

	var detected StandardPackage
	if err := DecodeModelJSON(text, &detected); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}
	detected.Usage = usage
	return &detected, nil
}

// verifyResponse is the wire shape of the verification reply.
type verifyResponse struct {
	PadDimensionsCorrect *bool    `json:"pad_dimensions_correct"`
	CorrectedPadWidth    *float64 `json:"corrected_pad_width"`
	CorrectedPadHeight   *float64 `json:"corrected_pad_height"`
	DimensionIssue       *string  `json:"dimension_issue"`
	PadCountCorrect      *bool    `json:"pad_count_correct"`
	CorrectedPadCount    *int     `json:"corrected_pad_count"`
	ThermalPadCorrect    *bool    `json:"thermal_pad_correct"`
	ThermalPadIssue      *string  `json:"thermal_pad_issue"`
	OverallVerified      bool     `json:"overall_verified"`
	Confidence           *float64 `json:"confidence"`
}

// VerifyFootprint sends the suspicious extraction back to the model
// along with the source image and asks for corrections. Implements
// verification.Corrector.
func (c *Client) VerifyFootprint(ctx context.Context, req verification.Request) (*verification.Verdict, error) {
	if !SupportedMediaType(req.Image.MediaType) {
		return nil, fmt.Errorf("unsupported media type: %s", req.Image.MediaType)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType),
		genai.NewPartFromText(verificationPrompt(req)),
	}

	var usage Usage
	text, err := c.generate(ctx, c.model, parts, verifyMaxOutputTokens, &usage)
	if err != nil {
		return nil, err
	}

	var wire verifyResponse
	if err := DecodeModelJSON(text, &wire); err != nil {
		return nil, fmt.Errorf("could not parse verification response: %w", err)
	}

	verdict := &verification.Verdict{
		Verified:        wire.OverallVerified,
		CorrectedWidth:  wire.CorrectedPadWidth,
		CorrectedHeight: wire.CorrectedPadHeight,
		CorrectedCount:  wire.CorrectedPadCount,
		Confidence:      0.5,
	}
	if wire.DimensionIssue != nil {
		verdict.DimensionIssue = *wire.DimensionIssue
	}
	if wire.ThermalPadIssue != nil {
		verdict.ThermalIssue = *wire.ThermalPadIssue
	}
	if wire.Confidence != nil {
		verdict.Confidence = *wire.Confidence
	}
	return verdict, nil
}

func verificationPrompt(req verification.Request) string {
	var values strings.Builder
	for _, reason := range req.Reasons {
		fmt.Fprintf(&values, "- %s\n", reason)
	}

	thermalStatus := "NO thermal pad was detected."
	if req.HasThermal {
		thermalStatus = "A thermal pad WAS detected."
	}

	return fmt.Sprintf(`You are verifying a PCB footprint extraction. I extracted dimensions from this datasheet image and need you to check if they are correct.

## Extracted Values to Verify

%s
## CRITICAL: Understanding Width vs Height

In the OUTPUT format:
- **width** = horizontal dimension (X axis) of the pad
- **height** = vertical dimension (Y axis) of the pad

For pads on the LEFT and RIGHT sides of a package (like UDFN, QFN, SOIC):
- The pads extend HORIZONTALLY toward the center
- So the LONGER dimension should be the WIDTH (horizontal)
- And the SHORTER dimension should be the HEIGHT (vertical)

## Verification Task

1. **Pad dimensions check**: I extracted width=%gmm, height=%gmm.

   VISUALLY look at ONE signal pad on the left or right side of the package:
   - Does the pad extend horizontally toward the center? (most common for UDFN/QFN/SOIC)
   - If yes: the LONGER dimension should be width, SHORTER should be height

   Current extraction: width=%gmm, height=%gmm
   - Is the longer dimension (%gmm) correctly assigned to the horizontal extent?

   Also check: Is either dimension actually the PITCH (spacing between pads)?
   - Pitch is the distance between pad CENTERS, not pad size
   - If a dimension equals the pitch, it's probably wrong

2. **Pad count check**: I found %d pads total.
   - Count the pads in the drawing (including any thermal/exposed pad)

3. **Thermal pad check**: %s

## Response Format

Return JSON:
`+"```json"+`
{
  "pad_dimensions_correct": true/false,
  "corrected_pad_width": <number or null if correct>,
  "corrected_pad_height": <number or null if correct>,
  "dimension_issue": "<explanation if wrong, null if correct>",

  "pad_count_correct": true/false,
  "corrected_pad_count": <number or null if correct>,

  "thermal_pad_correct": true/false,
  "thermal_pad_issue": "<explanation if wrong, null if correct>",

  "overall_verified": true/false,
  "confidence": <0.0-1.0>
}
`+"```"+`

Return ONLY valid JSON.`,
		values.String(),
		req.PadWidth, req.PadHeight,
		req.PadWidth, req.PadHeight,
		req.LongerDim,
		req.PadCount,
		thermalStatus,
	)
}

func (c *Client) generate(ctx context.Context, model string, parts []*genai.Part, maxTokens int32, usage *Usage) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}
	usage.add(resp.UsageMetadata)

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", model)
	}
	return text, nil
}

func imageParts(images []models.ImageData) ([]*genai.Part, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image is required")
	}
	parts := make([]*genai.Part, 0, len(images)+1)
	for i, img := range images {
		if !SupportedMediaType(img.MediaType) {
			return nil, fmt.Errorf("image %d: unsupported media type: %s (supported: %s)",
				i+1, img.MediaType, strings.Join(SupportedMediaTypes, ", "))
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MediaType))
	}
	return parts, nil
}

// modelPricing is USD per 1M tokens.
var modelPricing = map[string]struct{ input, output float64 }{
	"flash-lite": {0.10, 0.40},
	"flash":      {0.30, 2.50},
	"pro":        {1.25, 10.00},
}

// EstimateCost estimates the USD cost of a call from token usage.
// Unrecognized models are priced at the flash-lite tier.
func EstimateCost(usage Usage, model string) float64 {
	name := strings.ToLower(model)
	rates := modelPricing["flash-lite"]
	switch {
	case strings.Contains(name, "flash-lite"):
		rates = modelPricing["flash-lite"]
	case strings.Contains(name, "flash"):
		rates = modelPricing["flash"]
	case strings.Contains(name, "pro"):
		rates = modelPricing["pro"]
	}
	return (float64(usage.InputTokens)*rates.input + float64(usage.OutputTokens)*rates.output) / 1_000_000
}

// Close releases client resources. The genai client holds no
// persistent connection, so there is nothing to tear down; the method
// exists so callers can defer cleanup uniformly.
func (c *Client) Close() error {
	return nil
}
