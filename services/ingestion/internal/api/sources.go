package api

import (
	"tradewages/common/cache"
	"tradewages/common/errors"
	"tradewages/services/ingestion/internal/config"

	"go.uber.org/zap"
)

// NewSalarySource returns the live BLS client, or the mock source with an
// UPSTREAM_UNAVAILABLE error describing the fallback when no key is set.
func NewSalarySource(logger *zap.Logger, config *config.Config, c cache.Cache) (SalarySource, error) {
	if len(config.BLSAPIKeys) == 0 {
		err := errors.UpstreamUnavailable("no BLS_API_KEY configured, using mock salary data", nil)
		logger.Warn("salary source unavailable", zap.Error(err))
		return mockSalarySource{}, err
	}
	logger.Info("using BLS salary source", zap.Int("keys", len(config.BLSAPIKeys)))
	return newBLSClient(logger, config, c), nil
}

// NewProgramSource returns the live Scorecard client, or the mock source with
// an UPSTREAM_UNAVAILABLE error describing the fallback when no key is set.
func NewProgramSource(logger *zap.Logger, config *config.Config, c cache.Cache) (ProgramSource, error) {
	if config.ScorecardAPIKey == "" {
		err := errors.UpstreamUnavailable("no DATA_GOV_API_KEY configured, using mock school data", nil)
		logger.Warn("program source unavailable", zap.Error(err))
		return mockProgramSource{state: config.State}, err
	}
	return newScorecardClient(logger, config, c), nil
}
