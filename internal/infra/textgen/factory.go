package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"thread-summary-bot/internal/domain"
	"thread-summary-bot/internal/infra/bedrock"
	"thread-summary-bot/internal/infra/config"
	"thread-summary-bot/internal/infra/gemini"
	"thread-summary-bot/internal/infra/openai"
)

// Провайдеры генерации текста.
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// Providers собирает клиентов внешних AI-сервисов по конфигурации.
type Providers struct {
	Generator domain.TextGenerator
	// KnowledgeBase равен nil, если база знаний не настроена.
	KnowledgeBase domain.KnowledgeBase
}

// awsLoader позволяет подменить загрузку AWS-конфигурации в тестах.
type awsLoader func(ctx context.Context, region string) (aws.Config, error)

// New выбирает генератор по LLM_PROVIDER и подключает базу знаний Bedrock, если она задана.
func New(ctx context.Context, cfg config.AppConfig) (Providers, error) {
	return build(ctx, cfg, bedrock.LoadConfig)
}

func build(ctx context.Context, cfg config.AppConfig, loadAWS awsLoader) (Providers, error) {
	var (
		out    Providers
		awsCfg *aws.Config
	)
	loadOnce := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := loadAWS(ctx, cfg.AWS.Region)
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &loaded
		return loaded, nil
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return Providers{}, err
		}
		out.Generator = client
	case ProviderOpenAI:
		out.Generator = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	case ProviderBedrock:
		awsConf, err := loadOnce()
		if err != nil {
			return Providers{}, err
		}
		out.Generator = bedrock.NewClient(awsConf, cfg.AWS.BedrockModelID, cfg.AWS.BedrockModelARN)
	default:
		return Providers{}, fmt.Errorf("textgen: неизвестный провайдер %q", cfg.LLM.Provider)
	}

	if cfg.AWS.KnowledgeBaseID != "" {
		awsConf, err := loadOnce()
		if err != nil {
			return Providers{}, err
		}
		out.KnowledgeBase = bedrock.NewClient(awsConf, cfg.AWS.BedrockModelID, cfg.AWS.BedrockModelARN)
	}
	return out, nil
}
