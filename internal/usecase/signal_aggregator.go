package usecase

import (
	"context"
	"errors"
	"fmt"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
	"SignalEngine/internal/services/indicators"
	"SignalEngine/internal/services/structure"
	"SignalEngine/pkg/config"
)

var ErrNoPrice = errors.New("aggregate: no usable price in short timeframe")

// CandleSet is one asset's input for a cycle. All slices are chronological.
type CandleSet struct {
	Short []models.Candle
	Long  []models.Candle
	Macro []models.Candle
}

// SignalAggregator fuses neural, momentum and trend inputs into one signal.
type SignalAggregator struct {
	scorer      domsvc.NeuralScorer
	cfg         config.EngineConfig
	h4Factor    int
	longSeconds int64
}

func NewSignalAggregator(scorer domsvc.NeuralScorer, engine config.EngineConfig, scan config.ScannerConfig) *SignalAggregator {
	return &SignalAggregator{
		scorer:      scorer,
		cfg:         engine,
		h4Factor:    scan.H4Factor,
		longSeconds: domrepo.Interval(scan.LongInterval).Seconds(),
	}
}

// Aggregate builds the signal for symbol. Missing long or macro data degrades
// the affected components to their neutral values. Version and UpdatedAt are
// left for the store to stamp.
func (a *SignalAggregator) Aggregate(ctx context.Context, symbol string, set CandleSet) (models.AggregateSignal, error) {
	price, ok := models.LastClose(set.Short)
	if !ok || !(price > 0) {
		return models.AggregateSignal{}, ErrNoPrice
	}

	cls, err := a.scorer.Classify(ctx, features.TokenizeCandles(set.Short))
	if err != nil {
		return models.AggregateSignal{}, fmt.Errorf("classify %s: %w", symbol, err)
	}

	nShort := a.scorer.Score(ctx, set.Short)
	nLong := a.scorer.Score(ctx, set.Long)
	nMacro := a.scorer.Score(ctx, set.Macro)
	neural := (nShort + nLong + nMacro) / 3

	rsi := indicators.RSI(set.Short, a.cfg.RSIPeriod)
	raw := neural*a.cfg.NeuralWeight + (100-rsi)*a.cfg.RSIWeight

	macro, modifier := a.macroTrend(set.Macro)
	score := applyOverrides(raw+modifier, cls, macro, modifier, a.cfg)
	score = indicators.Clamp(score, 0, 100)

	return models.AggregateSignal{
		Symbol:     symbol,
		Price:      price,
		Score:      score,
		Action:     a.action(score),
		Opinion:    cls.Label,
		Confidence: cls.Confidence,
		Details: models.SignalDetails{
			H1:          structure.Score(set.Long, a.cfg.StructurePeriod),
			H4:          structure.Score(features.Resample(set.Long, a.h4Factor, a.longSeconds), a.cfg.StructurePeriod),
			D1:          structure.Score(set.Macro, a.cfg.StructurePeriod),
			RSI:         rsi,
			Trend:       a.trend(price, set.Long),
			Macro:       macro,
			NeuralShort: nShort,
			NeuralLong:  nLong,
			NeuralMacro: nMacro,
			RawScore:    raw,
		},
		// swings come from the hourly series
		Plan: indicators.FibonacciPlan(price, set.Long),
	}, nil
}

// macroTrend compares the fast and slow SMA of the daily series.
func (a *SignalAggregator) macroTrend(cs []models.Candle) (models.MacroState, float64) {
	fast, okFast := indicators.SMA(cs, a.cfg.MacroFastPeriod)
	slow, okSlow := indicators.SMA(cs, a.cfg.MacroSlowPeriod)
	switch {
	case !okFast || !okSlow:
		return models.MacroNeutral, 0
	case fast > slow:
		return models.MacroGoldenCross, a.cfg.MacroModifier
	default:
		return models.MacroDeathCross, -a.cfg.MacroModifier
	}
}

// applyOverrides lets a directional classifier verdict move the score. A
// strong verdict against the macro cross cancels the cross modifier first.
// At most one branch applies.
func applyOverrides(score float64, cls models.ClassificationResult, macro models.MacroState, modifier float64, cfg config.EngineConfig) float64 {
	strong := cls.Confidence > cfg.StrongConfidence

	switch cls.Label.Direction() {
	case models.DirectionUp:
		if !strong {
			return score + cfg.WeakOverrideWeight*cls.Confidence
		}
		if macro == models.MacroDeathCross {
			score -= modifier
			if cls.Confidence > cfg.BonusConfidence {
				score += cfg.ConfidenceBonus
			}
		}
		return score + cfg.StrongOverrideWeight*cls.Confidence
	case models.DirectionDown:
		if !strong {
			return score - cfg.WeakOverrideWeight*cls.Confidence
		}
		if macro == models.MacroGoldenCross {
			score -= modifier
		}
		return score - cfg.StrongOverrideWeight*cls.Confidence
	default:
		return score
	}
}

func (a *SignalAggregator) action(score float64) models.Action {
	switch {
	case score >= a.cfg.BuyThreshold:
		return models.ActionBuy
	case score <= a.cfg.SellThreshold:
		return models.ActionSell
	default:
		return models.ActionHold
	}
}

// trend is bearish only when the hourly SMA exists and price sits below it.
func (a *SignalAggregator) trend(price float64, long []models.Candle) models.Trend {
	if sma, ok := indicators.SMA(long, a.cfg.TrendPeriod); ok && price < sma {
		return models.TrendBearish
	}
	return models.TrendBullish
}
