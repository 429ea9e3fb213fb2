package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"EURUSD":     "EURUSD",
		"eurusd":     "EURUSD",
		" EURUSD ":   "EURUSD",
		"EUR/USD":    "EURUSD",
		"EUR-USD":    "EURUSD",
		"EUR_USD":    "EURUSD",
		"EURUSDm":    "EURUSD",
		"EURUSD.c":   "EURUSD",
		// separator plus letter suffix needs a second stripping pass
		"EUR/USDm": "EURUSD",
		"EUR-USDc": "EURUSD",
		"EUR_USDr": "EURUSD",
		"GBPUSD-ECN": "GBPUSD",
		"GOLDmicro":  "GOLD",
		"XAUUSDm":    "XAUUSD",
		"US30Cash":   "US30",
		"#US30":      "US30",
		".USDJPY":    "USDJPY",
		// real pairs ending in a suffix-looking letter must survive
		"USDZAR": "USDZAR",
		"XAGEUR": "XAGEUR",
		// unknown input passes through uppercased
		"BTCUSDT": "BTCUSDT",
	}

	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"EURUSDm", "EUR/USD", "EUR/USDm", "EUR-USDc", "EUR_USDr", "GOLDmicro", "#US30", "usdzar", "XAUUSD.c", "weird!!symbol"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	assert.Equal(t, Normalize("EURUSDm"), Normalize("EUR/USD"))
	assert.Equal(t, Normalize("EURUSD"), Normalize("EUR/USDm"))
	assert.Equal(t, "EURUSD", Normalize("EURUSDm"))
}

func TestPipSize(t *testing.T) {
	cases := map[string]float64{
		"EURUSD":  0.0001,
		"GBPUSD":  0.0001,
		"USDJPY":  0.01,
		"EURJPYm": 0.01,
		"XAUUSD":  0.10,
		"GOLD":    0.10,
		"XAGUSD":  0.001,
		"US30":    1.0,
		"NAS100":  1.0,
	}

	for inst, want := range cases {
		assert.InDelta(t, want, PipSize(inst), 1e-12, "PipSize(%q)", inst)
	}
}

func TestPipDistance(t *testing.T) {
	assert.InDelta(t, 50.0, PipDistance("EURUSD", 1.1000, 1.0950), 1e-6)
	assert.InDelta(t, 2.0, PipDistance("EURUSD", 1.1002, 1.1000), 1e-6)
	assert.InDelta(t, 30.0, PipDistance("USDJPY", 110.30, 110.00), 1e-6)
	assert.InDelta(t, 5.0, PipDistance("XAUUSD", 1900.5, 1900.0), 1e-6)
}
