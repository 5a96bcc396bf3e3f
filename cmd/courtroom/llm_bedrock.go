//go:build bedrock

package main

import (
	"log/slog"

	"virtual-courtroom/internal/adapter/llm"
	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
)

func createBedrockProvider(pc config.ProviderConfig, log *slog.Logger) (domain.LLMProvider, error) {
	return llm.NewBedrockProvider(pc, log)
}
