package usecases

import (
	"fmt"
	"math"
)

// Published per-million-token prices of the default chat model, in USD.
const (
	pricingModelLabel     = "Gemini Flash"
	inputCostPerMillion   = 0.10
	outputCostPerMillion  = 0.40
	avgConversationTokens = 500
)

type PricingEstimate struct {
	Model                        string             `json:"model"`
	InputCostPerMillion          float64            `json:"input_cost_per_million"`
	OutputCostPerMillion         float64            `json:"output_cost_per_million"`
	AvgConversationTokens        int                `json:"avg_conversation_tokens"`
	EstimatedCostPerConversation float64            `json:"estimated_cost_per_conversation"`
	ExampleCosts                 map[string]float64 `json:"example_costs"`
}

type PricingCalculator struct {
	volumes []int
}

func NewPricingCalculator() *PricingCalculator {
	return &PricingCalculator{volumes: []int{100, 1000, 10000}}
}

// Estimate prices a conversation as its average tokens billed at the output
// rate.
func (pc *PricingCalculator) Estimate() PricingEstimate {
	perConversation := float64(avgConversationTokens) * outputCostPerMillion / 1e6
	examples := make(map[string]float64, len(pc.volumes))
	for _, n := range pc.volumes {
		examples[fmt.Sprintf("%d_conversations", n)] = pc.CostFor(n)
	}
	return PricingEstimate{
		Model:                        pricingModelLabel,
		InputCostPerMillion:          inputCostPerMillion,
		OutputCostPerMillion:         outputCostPerMillion,
		AvgConversationTokens:        avgConversationTokens,
		EstimatedCostPerConversation: math.Round(perConversation*1e6) / 1e6,
		ExampleCosts:                 examples,
	}
}

// CostFor estimates the spend for a number of conversations.
func (pc *PricingCalculator) CostFor(conversations int) float64 {
	if conversations <= 0 {
		return 0
	}
	return round2(float64(avgConversationTokens) * outputCostPerMillion / 1e6 * float64(conversations))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
