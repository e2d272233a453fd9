package routing

import (
	"fmt"
	"sort"

	"github.com/upb/insight-gateway/backend/services/providers"
	"github.com/upb/insight-gateway/backend/services/tokens"
)

// Strategy selects the candidate ordering for each request.
type Strategy string

const (
	// StrategyFixedOrder tries providers in registration order.
	StrategyFixedOrder Strategy = "fixed_order"

	// StrategyCostThenFailover tries the cheapest provider first,
	// using estimated request cost. Ties keep registration order.
	StrategyCostThenFailover Strategy = "cost_then_failover"
)

// ParseStrategy validates a strategy name. Empty input selects the
// default cost_then_failover.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixedOrder:
		return StrategyFixedOrder, nil
	case StrategyCostThenFailover, "":
		return StrategyCostThenFailover, nil
	default:
		return "", fmt.Errorf("unknown routing strategy %q", s)
	}
}

// Rank orders candidates for one request. The input slice is not
// mutated; ranking is computed fresh per request because the estimated
// token count differs between requests.
func Rank(strategy Strategy, candidates []providers.Provider, estimatedTokens int) []providers.Provider {
	ranked := make([]providers.Provider, len(candidates))
	copy(ranked, candidates)

	if strategy == StrategyFixedOrder {
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ci := tokens.EstimateCost(estimatedTokens, ranked[i].CostPer1K())
		cj := tokens.EstimateCost(estimatedTokens, ranked[j].CostPer1K())
		return ci < cj
	})
	return ranked
}
