package models

import (
	"encoding/json"
	"fmt"
)

// SequenceLength is the fixed input width of the classifier.
const SequenceLength = 64

// TokenSequence is the bucketed price-move input of the classifier.
type TokenSequence [SequenceLength]int64

// Class is the classifier's output vocabulary. Values double as token ids.
type Class int

const (
	BigDump Class = iota
	Dump
	Flat
	Pump
	BigPump
)

// NumClasses is the width of the classifier's logit vector.
const NumClasses = 5

var classNames = [NumClasses]string{"BIG_DUMP", "DUMP", "FLAT", "PUMP", "BIG_PUMP"}

func (c Class) Valid() bool { return c >= BigDump && c <= BigPump }

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

// Direction collapses the class to its sign.
func (c Class) Direction() Direction {
	switch c {
	case Pump, BigPump:
		return DirectionUp
	case Dump, BigDump:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// ParseClass maps a label back to its class.
func ParseClass(s string) (Class, error) {
	for i, name := range classNames {
		if name == s {
			return Class(i), nil
		}
	}
	return Flat, fmt.Errorf("unknown class label %q", s)
}

func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Class) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClass(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type Direction int

const (
	DirectionFlat Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "flat"
	}
}

// ClassificationResult is one classifier verdict.
type ClassificationResult struct {
	Label         Class               `json:"label"`
	Confidence    float64             `json:"confidence"`
	Probabilities [NumClasses]float64 `json:"probabilities"`
}

// NeutralClassification is returned when the classifier cannot be consulted.
// Probabilities are uniform so they still sum to one.
func NeutralClassification() ClassificationResult {
	p := 1.0 / NumClasses
	return ClassificationResult{
		Label:         Flat,
		Confidence:    0,
		Probabilities: [NumClasses]float64{p, p, p, p, p},
	}
}
