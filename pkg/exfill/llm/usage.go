package llm

// Pricing holds USD prices per million tokens.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// DefaultPricing returns the reference input/output prices.
func DefaultPricing() Pricing {
	return Pricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}
}

// Usage is a token and cost estimate for one or more calls.
type Usage struct {
	Calls        int     `json:"calls"`
	InputTokens  float64 `json:"input_tokens"`
	OutputTokens float64 `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		Calls:        u.Calls + o.Calls,
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// EstimateUsage prices one exchange. Token counts reported by the provider are
// used when present; otherwise one token is taken as four characters.
func EstimateUsage(req Request, resp Response, p Pricing) Usage {
	in := float64(resp.InputTokens)
	if in == 0 {
		in = float64(len(req.System)+len(req.Prompt)) / 4
	}
	out := float64(resp.OutputTokens)
	if out == 0 {
		out = float64(len(resp.Text)) / 4
	}
	return Usage{
		Calls:        1,
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      in/1_000_000*p.InputPerMillion + out/1_000_000*p.OutputPerMillion,
	}
}
