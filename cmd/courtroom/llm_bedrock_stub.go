//go:build !bedrock

package main

import (
	"fmt"
	"log/slog"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
)

func createBedrockProvider(_ config.ProviderConfig, _ *slog.Logger) (domain.LLMProvider, error) {
	return nil, fmt.Errorf("bedrock provider requires build with -tags bedrock")
}
