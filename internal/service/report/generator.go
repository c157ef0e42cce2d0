package report

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"

	model "github.com/zhouzirui/medvoice/backend/internal/model/consultation"
	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
	"github.com/zhouzirui/medvoice/backend/pkg/utils"
)

// Request carries everything the generator may look at.
type Request struct {
	Session    model.Session
	Transcript model.Transcript
}

// Generator turns a finished consultation into a structured report.
type Generator interface {
	Generate(ctx context.Context, req Request) (*model.Report, error)
}

// LLMGenerator renders the report prompt and asks a chat model for the
// report JSON.
type LLMGenerator struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	validate *validator.Validate
}

// NewLLMGenerator compiles the prompt -> chat model chain.
func NewLLMGenerator(ctx context.Context, chatModel einomodel.BaseChatModel) (*LLMGenerator, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(newReportTemplate())
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile report chain: %w", err)
	}

	return &LLMGenerator{chain: runnable, validate: validator.New()}, nil
}

// Generate runs the chain once and decodes the answer strictly. Any output
// that does not match the report schema is an upstream failure.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*model.Report, error) {
	const op = "report.generate"

	msg, err := g.chain.Invoke(ctx, buildPromptInput(req))
	if err != nil {
		return nil, apperr.Upstream(op, "report generator failed", err)
	}
	if msg == nil {
		return nil, apperr.Upstream(op, "report generator returned no message", nil)
	}

	return decodeReport(g.validate, msg.Content)
}

func decodeReport(validate *validator.Validate, raw string) (*model.Report, error) {
	const op = "report.decode"

	var report model.Report
	if err := utils.DecodeStrictJSON(raw, &report); err != nil {
		return nil, apperr.Upstream(op, "report generator returned malformed output", err)
	}
	if err := validate.Struct(report); err != nil {
		return nil, apperr.Upstream(op, "report generator returned an incomplete report", err)
	}
	return &report, nil
}

// UnavailableGenerator fails every request. Used when no chat model is
// configured.
type UnavailableGenerator struct{}

func (UnavailableGenerator) Generate(context.Context, Request) (*model.Report, error) {
	return nil, apperr.Upstream("report.generate", "report generator is not configured", nil)
}
