package export

import (
	"log/slog"

	"github.com/brojonat/swapexport/service/config"
	"github.com/brojonat/swapexport/service/helius"
	"github.com/brojonat/swapexport/service/metrics"
	"github.com/brojonat/swapexport/service/txn"
)

// OptionsFromConfig maps configuration onto pipeline Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxTransactions: cfg.MaxTransactions,
		MaxExportRows:   cfg.MaxExportRows,
		FetchTimeout:    cfg.FetchTimeout,
		Estimates: txn.Estimates{
			NativePriceUSD:  cfg.EstimateNativePriceUSD,
			TokenMultiplier: cfg.EstimateTokenMultiplier,
		},
	}
}

// NewServiceFromConfig wires a Helius client and fetcher into a Service.
func NewServiceFromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	client := helius.NewClient(helius.ClientConfig{
		BaseURL:        cfg.HeliusBaseURL,
		APIKey:         cfg.HeliusAPIKey,
		Commitment:     cfg.HeliusCommitment,
		Timeout:        cfg.HeliusRequestTimeout,
		MaxRetries:     cfg.HeliusMaxRetries,
		RetryBaseDelay: cfg.HeliusRetryBaseDelay,
	}, nil, m, logger)
	fetcher := helius.NewFetcher(client, cfg.HeliusPageSize, cfg.HeliusPageInterval, m, logger)
	return NewService(fetcher, OptionsFromConfig(cfg), m, logger)
}
