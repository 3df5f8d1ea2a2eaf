package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/metrics"
)

const anthropicVersion = "bedrock-2023-05-31"

type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type agentAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// LoadConfig загружает AWS-конфигурацию из окружения для указанного региона.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("aws config: %w", err)
	}
	return cfg, nil
}

// Client работает с Claude на Bedrock и с базой знаний Bedrock.
type Client struct {
	runtime  runtimeAPI
	agent    agentAPI
	modelID  string
	modelArn string
}

var (
	_ domain.TextGenerator = (*Client)(nil)
	_ domain.KnowledgeBase = (*Client)(nil)
)

// NewClient создаёт клиента. Пустой modelArn строится из региона и modelID.
func NewClient(cfg aws.Config, modelID, modelArn string) *Client {
	return newClient(bedrockruntime.NewFromConfig(cfg), bedrockagentruntime.NewFromConfig(cfg), cfg.Region, modelID, modelArn)
}

func newClient(runtime runtimeAPI, agent agentAPI, region, modelID, modelArn string) *Client {
	if modelArn == "" && modelID != "" {
		modelArn = fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, modelID)
	}
	return &Client{runtime: runtime, agent: agent, modelID: modelID, modelArn: modelArn}
}

type messagesRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system,omitempty"`
	Messages         []messageContent `json:"messages"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate вызывает модель через InvokeModel в формате Anthropic Messages.
func (c *Client) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Temperature:      opts.Temperature,
		System:           opts.SystemInstruction,
		Messages:         []messageContent{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	start := time.Now()
	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	metrics.ObserveNetworkRequest("bedrock", "invoke_model", c.modelID, start, err)
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}
	if out == nil || len(out.Body) == 0 {
		return "", errors.New("bedrock: пустое тело ответа")
	}

	var parsed messagesResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(parsed.Content) == 0 || strings.TrimSpace(parsed.Content[0].Text) == "" {
		return "", errors.New("bedrock: в ответе нет текста")
	}
	in, outTokens := parsed.Usage.InputTokens, parsed.Usage.OutputTokens
	metrics.ObserveLLMGeneration(c.modelID, time.Since(start), in, outTokens, in+outTokens)
	return parsed.Content[0].Text, nil
}

// RetrieveAndGenerate выполняет RAG-запрос к базе знаний.
func (c *Client) RetrieveAndGenerate(ctx context.Context, query, knowledgeBaseID string) (domain.RAGAnswer, error) {
	start := time.Now()
	out, err := c.agent.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &agenttypes.RetrieveAndGenerateInput{Text: aws.String(query)},
		RetrieveAndGenerateConfiguration: &agenttypes.RetrieveAndGenerateConfiguration{
			Type: agenttypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &agenttypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(knowledgeBaseID),
				ModelArn:        aws.String(c.modelArn),
			},
		},
	})
	metrics.ObserveNetworkRequest("bedrock", "retrieve_and_generate", knowledgeBaseID, start, err)
	if err != nil {
		return domain.RAGAnswer{}, fmt.Errorf("bedrock: retrieve and generate: %w", err)
	}
	if out == nil || out.Output == nil || aws.ToString(out.Output.Text) == "" {
		return domain.RAGAnswer{}, errors.New("bedrock: в ответе RAG нет текста")
	}

	answer := domain.RAGAnswer{Answer: aws.ToString(out.Output.Text)}
	for _, citation := range out.Citations {
		answer.Citations = append(answer.Citations, citationSource(citation))
	}
	return answer, nil
}

func citationSource(citation agenttypes.Citation) domain.SearchSource {
	var src domain.SearchSource
	if part := citation.GeneratedResponsePart; part != nil && part.TextResponsePart != nil {
		src.Content = aws.ToString(part.TextResponsePart.Text)
	}
	if len(citation.RetrievedReferences) == 0 {
		return src
	}
	ref := citation.RetrievedReferences[0]
	if ref.Location != nil && ref.Location.S3Location != nil {
		src.Location = aws.ToString(ref.Location.S3Location.Uri)
	}
	if raw, ok := ref.Metadata["score"]; ok && raw != nil {
		var score float64
		if err := raw.UnmarshalSmithyDocument(&score); err == nil {
			src.Score = &score
		}
	}
	return src
}
