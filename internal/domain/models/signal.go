package models

import "time"

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
)

type MacroState string

const (
	MacroGoldenCross MacroState = "GOLDEN_CROSS"
	MacroDeathCross  MacroState = "DEATH_CROSS"
	MacroNeutral     MacroState = "NEUTRAL"
)

// SignalDetails carries the per-timeframe context behind a score.
type SignalDetails struct {
	H1          float64    `json:"h1"`
	H4          float64    `json:"h4"`
	D1          float64    `json:"d1"`
	RSI         float64    `json:"rsi"`
	Trend       Trend      `json:"trend"`
	Macro       MacroState `json:"macro"`
	NeuralShort float64    `json:"neural_short"`
	NeuralLong  float64    `json:"neural_long"`
	NeuralMacro float64    `json:"neural_macro"`
	RawScore    float64    `json:"raw_score"`
}

// FibonacciPlan holds risk levels for one price. Swing bounds are zero for a static plan.
type FibonacciPlan struct {
	TP        float64 `json:"tp"`
	SL        float64 `json:"sl"`
	DCA1      float64 `json:"dca1"`
	DCA2      float64 `json:"dca2"`
	IsDynamic bool    `json:"is_dynamic"`
	SwingHigh float64 `json:"swing_high,omitempty"`
	SwingLow  float64 `json:"swing_low,omitempty"`
}

// Reasoning is generated prose attached to a signal after the fact.
type Reasoning struct {
	Opinion     string    `json:"opinion"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AggregateSignal is the cached verdict for one symbol.
type AggregateSignal struct {
	Symbol     string        `json:"symbol"`
	Price      float64       `json:"price"`
	Score      float64       `json:"score"`
	Action     Action        `json:"action"`
	Opinion    Class         `json:"opinion"`
	Confidence float64       `json:"confidence"`
	Details    SignalDetails `json:"details"`
	Plan       FibonacciPlan `json:"plan"`
	Reasoning  *Reasoning    `json:"reasoning,omitempty"`
	Version    uint64        `json:"version"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsStale reports whether sig is older than maxAge at now. A non-positive maxAge never expires.
func IsStale(sig AggregateSignal, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(sig.UpdatedAt) > maxAge
}

// ReasoningPatch targets one stored version of a symbol's signal.
type ReasoningPatch struct {
	Symbol    string    `json:"symbol"`
	Version   uint64    `json:"version"`
	Reasoning Reasoning `json:"reasoning"`
}

// ReasoningRequest is the context handed to the text generator.
type ReasoningRequest struct {
	Symbol string        `json:"symbol"`
	Score  float64       `json:"score"`
	RSI    float64       `json:"rsi"`
	Price  float64       `json:"price"`
	Plan   FibonacciPlan `json:"plan"`
}
