package budget

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

// Rate is USD per 1K tokens.
type Rate struct {
	Input  float64
	Output float64
}

func (r Rate) total() float64 { return r.Input + r.Output }

// DefaultRates are list prices per 1K tokens.
var DefaultRates = map[string]Rate{
	"gpt-4o":       {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":  {Input: 0.00015, Output: 0.0006},
	"gpt-4.1":      {Input: 0.002, Output: 0.008},
	"gpt-4.1-mini": {Input: 0.0004, Output: 0.0016},
	"gpt-4.1-nano": {Input: 0.0001, Output: 0.0004},
	"o4-mini":      {Input: 0.0011, Output: 0.0044},
	"mock-1":       {},
}

// Estimator prices a model call from its token counts. Model names match
// exactly or by longest known prefix ("gpt-4o-mini-2024-07-18" → gpt-4o-mini).
// Unknown models are charged at the highest known rate.
type Estimator struct {
	log      *logger.Logger
	rates    map[string]Rate
	prefixes []string
	fallback Rate
	warned   sync.Map
}

func NewEstimator(log *logger.Logger, overrides map[string]Rate) *Estimator {
	rates := make(map[string]Rate, len(DefaultRates)+len(overrides))
	for k, v := range DefaultRates {
		rates[k] = v
	}
	for k, v := range overrides {
		rates[strings.ToLower(strings.TrimSpace(k))] = v
	}
	prefixes := make([]string, 0, len(rates))
	var fallback Rate
	for k, v := range rates {
		prefixes = append(prefixes, k)
		if v.total() > fallback.total() {
			fallback = v
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return &Estimator{
		log:      log.With("service", "CostEstimator"),
		rates:    rates,
		prefixes: prefixes,
		fallback: fallback,
	}
}

func (e *Estimator) RateFor(model string) (Rate, bool) {
	m := strings.ToLower(strings.TrimSpace(model))
	if r, ok := e.rates[m]; ok {
		return r, true
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(m, p+"-") {
			return e.rates[p], true
		}
	}
	return e.fallback, false
}

// Cost never fails; negative token counts are treated as 0.
func (e *Estimator) Cost(model string, promptTokens, completionTokens int) float64 {
	rate, known := e.RateFor(model)
	if !known {
		if _, dup := e.warned.LoadOrStore(model, struct{}{}); !dup {
			e.log.Warn("unknown model; pricing at highest known rate",
				"model", model,
				"input_per_1k", rate.Input,
				"output_per_1k", rate.Output,
			)
		}
	}
	pt := float64(max(promptTokens, 0))
	ct := float64(max(completionTokens, 0))
	return pt/1000*rate.Input + ct/1000*rate.Output
}

// ParseRates reads "model=in:out,model2=in:out" (USD per 1K tokens).
func ParseRates(raw string) (map[string]Rate, error) {
	out := map[string]Rate{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, prices, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("pricing entry %q: want model=in:out", item)
		}
		inRaw, outRaw, ok := strings.Cut(prices, ":")
		if !ok {
			return nil, fmt.Errorf("pricing entry %q: want model=in:out", item)
		}
		in, err := strconv.ParseFloat(strings.TrimSpace(inRaw), 64)
		if err != nil || in < 0 {
			return nil, fmt.Errorf("pricing entry %q: bad input rate", item)
		}
		outRate, err := strconv.ParseFloat(strings.TrimSpace(outRaw), 64)
		if err != nil || outRate < 0 {
			return nil, fmt.Errorf("pricing entry %q: bad output rate", item)
		}
		out[strings.ToLower(strings.TrimSpace(name))] = Rate{Input: in, Output: outRate}
	}
	return out, nil
}
