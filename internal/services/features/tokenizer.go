package features

import "SignalEngine/internal/domain/models"

// Bucket boundaries for the percentage move between consecutive closes.
// They reproduce the classifier's training tokenization and must not drift.
const (
	BigMoveThreshold = 0.02
	MoveThreshold    = 0.005
)

// PadToken left-fills sequences built from short histories.
const PadToken = int64(models.Flat)

// WindowCloses is the number of closes that produce one full sequence.
const WindowCloses = models.SequenceLength + 1

// TokenForChange buckets a fractional price change.
func TokenForChange(pct float64) int64 {
	switch {
	case pct < -BigMoveThreshold:
		return int64(models.BigDump)
	case pct < -MoveThreshold:
		return int64(models.Dump)
	case pct > BigMoveThreshold:
		return int64(models.BigPump)
	case pct > MoveThreshold:
		return int64(models.Pump)
	default:
		return int64(models.Flat)
	}
}

// Tokenize converts chronological closes into a classifier sequence. Only the
// last WindowCloses closes are used; shorter inputs are left-padded with FLAT.
// A zero previous close yields a FLAT token.
func Tokenize(closes []float64) models.TokenSequence {
	var seq models.TokenSequence
	for i := range seq {
		seq[i] = PadToken
	}
	if len(closes) > WindowCloses {
		closes = closes[len(closes)-WindowCloses:]
	}
	if len(closes) < 2 {
		return seq
	}

	offset := models.SequenceLength - (len(closes) - 1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		tok := PadToken
		if prev != 0 {
			tok = TokenForChange((closes[i] - prev) / prev)
		}
		seq[offset+i-1] = tok
	}
	return seq
}

// TokenizeCandles tokenizes the closes of a chronological candle slice.
func TokenizeCandles(cs []models.Candle) models.TokenSequence {
	return Tokenize(models.Closes(models.Tail(cs, WindowCloses)))
}

// ValidTokens reports whether every token is a known class id.
func ValidTokens(seq models.TokenSequence) bool {
	for _, tok := range seq {
		if !models.Class(tok).Valid() {
			return false
		}
	}
	return true
}
