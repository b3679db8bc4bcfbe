package strategy

import (
	"errors"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
)

// ErrNoStrategy is returned when no registered strategy matches a record and
// no default strategy is configured.
var ErrNoStrategy = errors.New("no applicable strategy found and no default strategy set")

// StrategySelector picks the strategy (or ensemble) to run for a record.
type StrategySelector struct {
	strategies      []ModelStrategy
	defaultStrategy ModelStrategy
	useEnsemble     bool
}

func NewSelector() *StrategySelector {
	return &StrategySelector{}
}

// Register adds a strategy. Registration order matters: when ensemble mode
// is off and several strategies match, the first registered match wins.
func (s *StrategySelector) Register(strategy ModelStrategy) {
	s.strategies = append(s.strategies, strategy)
}

func (s *StrategySelector) SetDefault(strategy ModelStrategy) {
	s.defaultStrategy = strategy
}

func (s *StrategySelector) EnableEnsemble(enabled bool) {
	s.useEnsemble = enabled
}

func (s *StrategySelector) Available() []string {
	names := make([]string, 0, len(s.strategies))
	for _, st := range s.strategies {
		names = append(names, st.Name())
	}
	return names
}

// Select filters registered strategies by CanHandle, falls back to the
// default when none match, and wraps multiple matches in an ensemble when
// ensemble mode is enabled.
func (s *StrategySelector) Select(record *models.PatientRecord, pctx *models.ProcessingContext) (ModelStrategy, error) {
	var applicable []ModelStrategy
	for _, strategy := range s.strategies {
		if strategy.CanHandle(record, pctx) {
			applicable = append(applicable, strategy)
		}
	}

	if len(applicable) == 0 {
		if s.defaultStrategy != nil {
			logger.Log.WithField("strategy", s.defaultStrategy.Name()).
				Debug("No applicable strategy, using default")
			return s.defaultStrategy, nil
		}
		return nil, ErrNoStrategy
	}

	names := make([]string, 0, len(applicable))
	for _, st := range applicable {
		names = append(names, st.Name())
	}
	logger.Log.WithFields(map[string]interface{}{
		"applicable": names,
		"ensemble":   s.useEnsemble,
	}).Debug("Strategy selection")

	if s.useEnsemble && len(applicable) > 1 {
		return NewEnsembleStrategy(applicable), nil
	}

	// First applicable strategy wins; the default catalog orders specific
	// strategies before the general fallback.
	return applicable[0], nil
}
