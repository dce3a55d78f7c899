package models

// Requests for the signal HTTP endpoints.

type ClassifyRequest struct {
	Prices []float64 `json:"prices" validate:"required,min=65,dive,gt=0"`
}

type PlanRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required,symbol"`
	Price  float64 `query:"price" json:"price" validate:"required,gt=0"`
}

// ClassifyResponse is the manual-classification verdict.
type ClassifyResponse struct {
	Label         Class               `json:"label"`
	TokenIndex    int                 `json:"token_index"`
	Confidence    float64             `json:"confidence"`
	Probabilities [NumClasses]float64 `json:"probabilities"`
}

// SignalView decorates a cached signal with its staleness verdict.
type SignalView struct {
	AggregateSignal
	Stale bool `json:"stale"`
}
