package textgen

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"thread-summary-bot/internal/infra/bedrock"
	"thread-summary-bot/internal/infra/config"
	"thread-summary-bot/internal/infra/openai"
)

func TestBuildSelectsProvider(t *testing.T) {
	var cfg config.AppConfig
	cfg.LLM.Provider = "OpenAI"
	cfg.OpenAI.APIKey = "sk-test"
	loads := 0
	loader := func(context.Context, string) (aws.Config, error) {
		loads++
		return aws.Config{Region: "ap-northeast-2"}, nil
	}

	providers, err := build(context.Background(), cfg, loader)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := providers.Generator.(*openai.Client); !ok {
		t.Fatalf("ожидали OpenAI-генератор, получили %T", providers.Generator)
	}
	if providers.KnowledgeBase != nil || loads != 0 {
		t.Fatalf("без базы знаний AWS не нужен")
	}
}

func TestBuildBedrockWithKnowledgeBase(t *testing.T) {
	var cfg config.AppConfig
	cfg.LLM.Provider = "bedrock"
	cfg.AWS.Region = "ap-northeast-2"
	cfg.AWS.BedrockModelID = "anthropic.claude-3-haiku"
	cfg.AWS.KnowledgeBaseID = "KB1"
	loads := 0
	loader := func(context.Context, string) (aws.Config, error) {
		loads++
		return aws.Config{Region: "ap-northeast-2"}, nil
	}

	providers, err := build(context.Background(), cfg, loader)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, ok := providers.Generator.(*bedrock.Client); !ok {
		t.Fatalf("ожидали Bedrock-генератор, получили %T", providers.Generator)
	}
	if providers.KnowledgeBase == nil {
		t.Fatalf("ожидали базу знаний")
	}
	if loads != 1 {
		t.Fatalf("AWS-конфигурация должна загружаться один раз, загрузок: %d", loads)
	}
}

func TestBuildErrors(t *testing.T) {
	var unknown config.AppConfig
	unknown.LLM.Provider = "claude-local"
	if _, err := build(context.Background(), unknown, nil); err == nil {
		t.Fatalf("ожидали ошибку неизвестного провайдера")
	}

	var broken config.AppConfig
	broken.LLM.Provider = "bedrock"
	failing := func(context.Context, string) (aws.Config, error) { return aws.Config{}, errors.New("no credentials") }
	if _, err := build(context.Background(), broken, failing); err == nil {
		t.Fatalf("ожидали ошибку загрузки AWS")
	}
}
