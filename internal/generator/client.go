package generator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/certprep/backend/internal/models"
)

// LLMClient is the interface both generator implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient with certification question prompts.
type Generator struct {
	llm   LLMClient
	model string
}

// NewGenerator uses the mock client when mock is set or no API key is
// configured, and the Anthropic API otherwise.
func NewGenerator(mock bool, apiKey, model string) *Generator {
	if mock || apiKey == "" {
		log.Println("[generator] using mock data")
		return &Generator{llm: NewMockClient(), model: "mock"}
	}
	log.Println("[generator] using Anthropic API:", model)
	return &Generator{llm: NewAPIClient(apiKey, model), model: model}
}

func NewGeneratorWithClient(llm LLMClient, model string) *Generator {
	return &Generator{llm: llm, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

// Draft asks the model for count questions on one subject of an exam
// version and parses the reply.
func (g *Generator) Draft(ctx context.Context, brief Brief) (*GeneratedBatch, *LLMResponse, error) {
	resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(brief))
	if err != nil {
		return nil, nil, fmt.Errorf("draft questions: %w", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse draft response: %w", err)
	}
	return batch, resp, nil
}

// Brief describes what to draft.
type Brief struct {
	ExamTitle   string
	VersionName string
	SubjectName string
	Difficulty  models.Difficulty
	Count       int
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[generator] retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			select {
			case <-time.After(sleepDuration):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("[generator] Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      buildMockJSON(5),
		PromptTokens: 900,
		OutputTokens: 1800,
	}, nil
}

func buildMockJSON(count int) string {
	letters := []string{"A", "B", "C", "D"}
	topics := []string{
		"least privilege", "network segmentation", "incident triage",
		"key rotation", "vulnerability scanning", "backup verification",
	}

	questions := "["
	for i := 0; i < count; i++ {
		correct := letters[i%len(letters)]
		topic := topics[i%len(topics)]
		if i > 0 {
			questions += ","
		}

		options := "["
		for j, letter := range letters {
			if j > 0 {
				options += ","
			}
			label := "a distractor"
			if letter == correct {
				label = "the best practice"
			}
			options += fmt.Sprintf(`{"letter":"%s","text":"[Mock] Option %s describing %s for %s"}`, letter, letter, label, topic)
		}
		options += "]"

		questions += fmt.Sprintf(`{"question_text":"[Mock] Which action best applies %s in a mid-sized organization?","domain":"%s","options":%s,"correct_letter":"%s","explanation":"[Mock] Option %s applies %s directly; the others do not."}`,
			topic, topic, options, correct, correct, topic)
	}
	questions += "]"

	return fmt.Sprintf(`{"questions":%s}`, questions)
}
