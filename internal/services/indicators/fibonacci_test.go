package indicators

import (
	"math"
	"math/rand"
	"testing"

	"SignalEngine/internal/domain/models"
)

func TestFibonacciPlanStaticFallback(t *testing.T) {
	plan := FibonacciPlan(100, candlesFromCloses(series(19, 100, 1)...))
	if plan.IsDynamic {
		t.Fatalf("expected static plan under 20 candles")
	}
	want := models.FibonacciPlan{TP: 102, DCA1: 98, DCA2: 95, SL: 92}
	if !closeTo(plan.TP, want.TP) || !closeTo(plan.DCA1, want.DCA1) || !closeTo(plan.DCA2, want.DCA2) || !closeTo(plan.SL, want.SL) {
		t.Fatalf("static plan = %+v", plan)
	}
}

func TestFibonacciPlanZeroRangeIsStatic(t *testing.T) {
	plan := FibonacciPlan(100, candlesFromCloses(series(40, 100, 0)...))
	if plan.IsDynamic {
		t.Fatalf("flat window must fall back to the static plan")
	}
	if !(plan.TP > 100) || !(plan.SL < 100) {
		t.Fatalf("static plan not around price: %+v", plan)
	}
}

func TestFibonacciPlanDynamicLevels(t *testing.T) {
	// one clean pivot high at 120 and one pivot low at 80, flat elsewhere at 100
	cs := make([]models.Candle, 30)
	for i := range cs {
		cs[i] = models.Candle{Time: int64(i), Open: 100, High: 101, Low: 99, Close: 100}
	}
	cs[10].High = 120
	cs[20].Low = 80

	plan := FibonacciPlan(100, cs)
	if !plan.IsDynamic {
		t.Fatalf("expected dynamic plan")
	}
	if plan.SwingHigh != 120 || plan.SwingLow != 80 {
		t.Fatalf("swings = %v/%v", plan.SwingHigh, plan.SwingLow)
	}
	// range 40
	if !closeTo(plan.TP, 120+40*FibExtension) {
		t.Fatalf("tp = %v", plan.TP)
	}
	if !closeTo(plan.SL, 80-80*StopBuffer) {
		t.Fatalf("sl = %v", plan.SL)
	}
	if !closeTo(plan.DCA1, math.Min(120-40*FibShallow, 99)) {
		t.Fatalf("dca1 = %v", plan.DCA1)
	}
	if !closeTo(plan.DCA2, math.Min(120-40*FibDeep, 97)) {
		t.Fatalf("dca2 = %v", plan.DCA2)
	}
}

func TestPlanFromSwingsClamps(t *testing.T) {
	// swings far below the price would put every level under it; clamps pull tp above
	plan := PlanFromSwings(200, 110, 100)
	if !closeTo(plan.TP, 202) {
		t.Fatalf("tp clamp = %v", plan.TP)
	}
	// swings far above the price would put sl above it
	plan = PlanFromSwings(50, 200, 100)
	if !closeTo(plan.SL, 47.5) {
		t.Fatalf("sl clamp = %v", plan.SL)
	}
	if plan.DCA1 > 50*0.99 || plan.DCA2 > 50*0.97 {
		t.Fatalf("dca clamps violated: %+v", plan)
	}
}

func TestPlanFromSwingsInvertedRange(t *testing.T) {
	// highest pivot high under the lowest pivot low: range -5
	plan := PlanFromSwings(102, 100, 105)
	if !plan.IsDynamic || plan.SwingHigh != 100 || plan.SwingLow != 105 {
		t.Fatalf("inverted range must stay dynamic: %+v", plan)
	}
	want := models.FibonacciPlan{TP: 103.02, SL: 96.9, DCA1: 100.98, DCA2: 98.94}
	if !closeTo(plan.TP, want.TP) || !closeTo(plan.SL, want.SL) || !closeTo(plan.DCA1, want.DCA1) || !closeTo(plan.DCA2, want.DCA2) {
		t.Fatalf("plan = %+v, want %+v", plan, want)
	}
}

func TestPlanFromSwingsNonFiniteIsStatic(t *testing.T) {
	for _, swings := range [][2]float64{{math.NaN(), 100}, {math.Inf(1), 100}, {100, math.Inf(-1)}} {
		if plan := PlanFromSwings(100, swings[0], swings[1]); plan.IsDynamic {
			t.Fatalf("swings %v gave dynamic plan %+v", swings, plan)
		}
	}
}

func TestPlanMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		price := 0.01 + rng.Float64()*1000
		low := rng.Float64() * 1000
		high := low + (rng.Float64()-0.2)*500 // includes inverted and zero-width swings
		if i%50 == 0 {
			high = low
		}
		plan := PlanFromSwings(price, high, low)
		if !(plan.TP > price) || !(plan.SL < price) {
			t.Fatalf("price=%v high=%v low=%v produced %+v", price, high, low, plan)
		}
	}
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
