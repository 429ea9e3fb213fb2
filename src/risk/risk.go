// Package risk derives protective-stop classification and R-multiples from
// price and status data. Pure, no I/O; all math runs on decimals so float
// noise in stored prices cannot flip a classification.
package risk

import "github.com/shopspring/decimal"

// ----- direction -----

type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

// DirectionFor maps a BUY/SELL side string onto a signed direction.
func DirectionFor(side string) Direction {
	if side == "SELL" {
		return Short
	}
	return Long
}

// ----- protective stop classification -----

type StopStatus string

const (
	StopUnprotected  StopStatus = "UNPROTECTED"
	StopBreakeven    StopStatus = "BREAKEVEN"
	StopProtected    StopStatus = "PROTECTED"
	StopLockedProfit StopStatus = "LOCKED_PROFIT"
)

// breakevenEpsilon: a stop within 0.01% of entry counts as breakeven, which
// absorbs float rounding without misclassifying stops that are genuinely
// in profit.
var breakevenEpsilon = decimal.NewFromFloat(0.0001)

// DeriveStopStatus classifies the current stop-loss relative to entry.
func DeriveStopStatus(dir Direction, entry, stopLoss float64) StopStatus {
	sl := decimal.NewFromFloat(stopLoss)
	if sl.LessThanOrEqual(decimal.Zero) {
		return StopUnprotected
	}

	e := decimal.NewFromFloat(entry)
	dist := sl.Sub(e)
	eps := e.Mul(breakevenEpsilon).Abs()

	if dist.Abs().LessThanOrEqual(eps) {
		return StopBreakeven
	}

	inProfit := dist.IsPositive()
	if dir == Short {
		inProfit = dist.IsNegative()
	}
	if inProfit {
		return StopLockedProfit
	}
	return StopProtected
}

// ----- R-multiples -----

// LiveRMultiple is the current unrealized R against the immutable initial
// risk distance. Returns zero when the risk distance is non-positive.
func LiveRMultiple(dir Direction, currentPrice, initialEntry, initialRiskAbs float64) decimal.Decimal {
	risk := decimal.NewFromFloat(initialRiskAbs)
	if risk.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	move := decimal.NewFromFloat(currentPrice).Sub(decimal.NewFromFloat(initialEntry))
	return move.Div(risk).Mul(decimal.NewFromInt(int64(dir)))
}

// TargetRMultiple is the R promised by the first take-profit target, or
// ok=false when there is no target or no risk distance.
func TargetRMultiple(takeProfit, initialEntry, initialRiskAbs float64) (decimal.Decimal, bool) {
	tp := decimal.NewFromFloat(takeProfit)
	risk := decimal.NewFromFloat(initialRiskAbs)
	if tp.LessThanOrEqual(decimal.Zero) || risk.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}

	return tp.Sub(decimal.NewFromFloat(initialEntry)).Abs().Div(risk), true
}

// ----- realized R -----

// Trade status labels interpreted by the status fallback.
const (
	StatusTPHit  = "TP_HIT"
	StatusSLHit  = "SL_HIT"
	StatusBE     = "BE"
	StatusClosed = "CLOSED"
)

// Snapshot carries everything RealizedR needs. ClosePrice is the explicit
// close or the one taken from the matched terminal trade; the caller
// resolves that precedence before building the snapshot.
type Snapshot struct {
	Direction         Direction
	Status            string
	InitialEntry      float64
	InitialTakeProfit float64
	InitialRiskAbs    float64
	ClosePrice        *float64
	FinalR            *float64
}

// RealizedR resolves the final R-multiple of a trade, or ok=false when it
// cannot be known. Precedence is fixed and must not be reordered:
//
//  1. a persisted final R wins outright (immutable once resolved);
//  2. a known close price yields signed R regardless of the status label;
//  3. status fallback: SL_HIT -1, BE 0, TP_HIT target R, CLOSED without a
//     close price stays unknown rather than guessed.
func RealizedR(s Snapshot) (decimal.Decimal, bool) {
	if s.FinalR != nil {
		return decimal.NewFromFloat(*s.FinalR), true
	}

	if s.ClosePrice != nil {
		risk := decimal.NewFromFloat(s.InitialRiskAbs)
		if risk.IsPositive() {
			move := decimal.NewFromFloat(*s.ClosePrice).Sub(decimal.NewFromFloat(s.InitialEntry))
			return move.Div(risk).Mul(decimal.NewFromInt(int64(s.Direction))), true
		}
	}

	switch s.Status {
	case StatusSLHit:
		return decimal.NewFromInt(-1), true
	case StatusBE:
		return decimal.Zero, true
	case StatusTPHit:
		return TargetRMultiple(s.InitialTakeProfit, s.InitialEntry, s.InitialRiskAbs)
	}

	return decimal.Zero, false
}
