package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStopStatusLong(t *testing.T) {
	cases := []struct {
		name     string
		stopLoss float64
		want     StopStatus
	}{
		{"no stop", 0, StopUnprotected},
		{"negative stop", -5, StopUnprotected},
		{"at entry", 100, StopBreakeven},
		{"within epsilon", 100.005, StopBreakeven},
		{"below entry", 95, StopProtected},
		{"above entry", 105, StopLockedProfit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStopStatus(Long, 100, tc.stopLoss))
		})
	}
}

func TestDeriveStopStatusShort(t *testing.T) {
	// signs invert for shorts
	assert.Equal(t, StopUnprotected, DeriveStopStatus(Short, 100, 0))
	assert.Equal(t, StopBreakeven, DeriveStopStatus(Short, 100, 100))
	assert.Equal(t, StopProtected, DeriveStopStatus(Short, 100, 105))
	assert.Equal(t, StopLockedProfit, DeriveStopStatus(Short, 100, 95))
}

func TestLiveRMultiple(t *testing.T) {
	r := LiveRMultiple(Long, 1.1050, 1.1000, 0.0050)
	assert.True(t, r.Equal(decimal.NewFromInt(1)), "got %s", r)

	r = LiveRMultiple(Short, 1.1050, 1.1000, 0.0050)
	assert.True(t, r.Equal(decimal.NewFromInt(-1)), "got %s", r)

	assert.True(t, LiveRMultiple(Long, 1.2, 1.1, 0).IsZero())
	assert.True(t, LiveRMultiple(Long, 1.2, 1.1, -0.1).IsZero())
}

func TestTargetRMultiple(t *testing.T) {
	r, ok := TargetRMultiple(1.1100, 1.1000, 0.0050)
	require.True(t, ok)
	assert.True(t, r.Equal(decimal.NewFromInt(2)), "got %s", r)

	_, ok = TargetRMultiple(0, 1.1000, 0.0050)
	assert.False(t, ok)

	_, ok = TargetRMultiple(1.1100, 1.1000, 0)
	assert.False(t, ok)
}

func TestRealizedRPrecedence(t *testing.T) {
	closePrice := 1.1050
	finalR := 3.5

	t.Run("persisted final R wins outright", func(t *testing.T) {
		r, ok := RealizedR(Snapshot{
			Direction:      Long,
			Status:         StatusSLHit,
			InitialEntry:   1.1000,
			InitialRiskAbs: 0.0050,
			ClosePrice:     &closePrice,
			FinalR:         &finalR,
		})
		require.True(t, ok)
		assert.True(t, r.Equal(decimal.NewFromFloat(3.5)), "got %s", r)
	})

	t.Run("close price beats status fallback", func(t *testing.T) {
		// status says SL_HIT but the authoritative close price says +1R
		r, ok := RealizedR(Snapshot{
			Direction:      Long,
			Status:         StatusSLHit,
			InitialEntry:   1.1000,
			InitialRiskAbs: 0.0050,
			ClosePrice:     &closePrice,
		})
		require.True(t, ok)
		assert.True(t, r.Equal(decimal.NewFromInt(1)), "got %s", r)
	})

	t.Run("closed with close price and no explicit final R", func(t *testing.T) {
		r, ok := RealizedR(Snapshot{
			Direction:      Long,
			Status:         StatusClosed,
			InitialEntry:   1.1000,
			InitialRiskAbs: 0.0050,
			ClosePrice:     &closePrice,
		})
		require.True(t, ok)
		assert.True(t, r.Equal(decimal.NewFromInt(1)), "got %s", r)
	})
}

func TestRealizedRStatusFallback(t *testing.T) {
	base := Snapshot{
		Direction:         Long,
		InitialEntry:      1.1000,
		InitialTakeProfit: 1.1100,
		InitialRiskAbs:    0.0050,
	}

	t.Run("SL_HIT is -1", func(t *testing.T) {
		s := base
		s.Status = StatusSLHit
		r, ok := RealizedR(s)
		require.True(t, ok)
		assert.True(t, r.Equal(decimal.NewFromInt(-1)))
	})

	t.Run("BE is 0", func(t *testing.T) {
		s := base
		s.Status = StatusBE
		r, ok := RealizedR(s)
		require.True(t, ok)
		assert.True(t, r.IsZero())
	})

	t.Run("TP_HIT is R to first target", func(t *testing.T) {
		s := base
		s.Status = StatusTPHit
		r, ok := RealizedR(s)
		require.True(t, ok)
		assert.True(t, r.Equal(decimal.NewFromInt(2)), "got %s", r)
	})

	t.Run("CLOSED without close price is unknown", func(t *testing.T) {
		s := base
		s.Status = StatusClosed
		_, ok := RealizedR(s)
		assert.False(t, ok)
	})
}

func TestDirectionFor(t *testing.T) {
	assert.Equal(t, Long, DirectionFor("BUY"))
	assert.Equal(t, Short, DirectionFor("SELL"))
}
