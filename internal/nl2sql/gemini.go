package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL for proxies.
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	Departments     []DepartmentAlias
}

type GeminiTranslator struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	timeout         time.Duration
	departments     []DepartmentAlias
}

func NewGeminiTranslator(ctx context.Context, cfg GeminiConfig) (*GeminiTranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash-lite"
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	departments := cfg.Departments
	if departments == nil {
		departments = DefaultDepartments()
	}
	return &GeminiTranslator{
		client:          client,
		model:           model,
		temperature:     float32(cfg.Temperature),
		maxOutputTokens: int32(maxTokens),
		timeout:         timeout,
		departments:     departments,
	}, nil
}

func (g *GeminiTranslator) Generate(ctx context.Context, req Request) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := g.temperature
	topP := float32(0.8)
	topK := float32(40)
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(BuildPrompt(req, g.departments)),
		&genai.GenerateContentConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			TopK:            &topK,
			CandidateCount:  1,
			MaxOutputTokens: g.maxOutputTokens,
		},
	)
	if err != nil {
		return Candidate{}, classifyGeminiErr(err)
	}

	return Candidate{
		SQL:      CleanSQL(resp.Text()),
		Source:   SourceModel,
		Provider: "gemini",
		Model:    g.model,
	}, nil
}

func classifyGeminiErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return unavailable(err)
		}
		return fmt.Errorf("gemini generate: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return unavailable(err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return unavailable(err)
	}
	return fmt.Errorf("gemini generate: %w", err)
}
