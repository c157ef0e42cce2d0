package imaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	model "github.com/zhouzirui/medvoice/backend/internal/model/imaging"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

const (
	DefaultModel         = "google/gemini-2.0-flash-001"
	DefaultMaxTokens     = 1500
	DefaultMaxImageBytes = 5 << 20
	DefaultTimeout       = 60 * time.Second
)

// CompletionClient is the part of the OpenAI-compatible client in use.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client for any OpenAI-compatible endpoint,
// e.g. OpenRouter.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Options tunes the analysis request.
type Options struct {
	Model         string
	MaxTokens     int
	MaxImageBytes int
	Timeout       time.Duration
	Logger        *zap.Logger
}

// Input is one analysis request.
type Input struct {
	Image    string
	FileName string
}

// Service forwards health-related photos to a vision model and validates the
// structured answer.
type Service struct {
	client   CompletionClient
	opts     Options
	validate *validator.Validate
	log      *zap.Logger
}

// NewService wires the vision collaborator.
func NewService(client CompletionClient, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		client:   client,
		opts:     opts,
		validate: validator.New(),
		log:      opts.Logger.Named("imaging"),
	}
}

// MaxImageBytes is the decoded size limit.
func (s *Service) MaxImageBytes() int {
	return s.opts.MaxImageBytes
}

// Analyze validates the image and asks the vision model for an assessment.
// Nothing is persisted.
func (s *Service) Analyze(ctx context.Context, in Input) (*model.Analysis, error) {
	const op = "imaging.analyze"

	img, err := parseDataURL(in.Image, s.opts.MaxImageBytes)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, s.buildRequest(strings.TrimSpace(in.Image)))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindTimeout, op, "image analysis timed out", err)
		}
		return nil, apperr.Upstream(op, "image analysis failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.Upstream(op, "image analysis returned no answer", nil)
	}

	var analysis model.Analysis
	if err := utils.DecodeStrictJSON(resp.Choices[0].Message.Content, &analysis); err != nil {
		return nil, apperr.Upstream(op, "image analysis returned malformed output", err)
	}
	if err := s.validate.Struct(analysis); err != nil {
		return nil, apperr.Upstream(op, "image analysis returned an incomplete assessment", err)
	}

	s.log.Info("image analyzed",
		zap.String("file_name", in.FileName),
		zap.String("media_type", img.MediaType),
		zap.Int("bytes", len(img.Data)),
		zap.String("severity", string(analysis.Severity)),
	)
	return &analysis, nil
}

func (s *Service) buildRequest(dataURL string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Please analyze this health-related image and provide a detailed assessment.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
}

const analysisPrompt = `You are an AI Medical Image Analysis Assistant. Analyze the provided health-related image (such as skin conditions, wounds, rashes, injuries, or other visible health concerns) and provide a detailed medical assessment.

Based on the image, generate a structured analysis with the following fields:

1. condition: A brief description of what you observe in the image (e.g., "Possible contact dermatitis", "Minor laceration", "Insect bite")
2. severity: Rate the severity as "Mild", "Moderate", or "Severe"
3. symptoms: List of visible symptoms observed in the image (e.g., redness, swelling, discoloration)
4. possibleCauses: List of potential causes for the condition
5. recommendations: List of care recommendations (include when to seek medical attention)
6. urgencyLevel: "Immediate medical attention required", "See a doctor within 24-48 hours", or "Monitor and self-care appropriate"
7. disclaimer: A medical disclaimer statement

IMPORTANT RULES:
- Be thorough but not alarmist
- Always recommend professional medical consultation for serious conditions
- Provide practical, actionable advice
- Be empathetic and supportive in tone

Return the result in this JSON format:
{
  "condition": "string",
  "severity": "Mild | Moderate | Severe",
  "symptoms": ["symptom1", "symptom2"],
  "possibleCauses": ["cause1", "cause2"],
  "recommendations": ["rec1", "rec2", "rec3"],
  "urgencyLevel": "string",
  "disclaimer": "This analysis is for informational purposes only and does not replace professional medical diagnosis. Please consult a healthcare provider for proper evaluation and treatment."
}

Only include these fields. Respond with nothing else.`
