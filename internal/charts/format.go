package charts

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"race-telemetry-dashboard/internal/models"
)

const LapTimePlaceholder = "--:---.---"

// FormatLapTime renders seconds as M:SS.sss from one minute on and as S.sss"s" below.
// Values <= 0 and non finite values render the placeholder.
func FormatLapTime(seconds float64) string {
	if !(seconds > 0) || math.IsInf(seconds, 1) {
		return LapTimePlaceholder
	}
	minutes := math.Floor(seconds / 60)
	if minutes > 0 {
		rest := toFixed(math.Mod(seconds, 60), 3)
		if len(rest) < 6 {
			rest = strings.Repeat("0", 6-len(rest)) + rest
		}
		return fmt.Sprintf("%d:%s", int64(minutes), rest)
	}
	return toFixed(seconds, 3) + "s"
}

// FormatMetricValue renders a telemetry value for tooltips and tables.
func FormatMetricValue(m models.Metric, v float64) string {
	if m == models.MetricGear {
		return fmt.Sprintf("%d", int64(math.Floor(v+0.5)))
	}
	return toFixed(v, 1)
}

// toFixed rounds the exact binary value of x to the given number of decimals,
// picking the larger candidate on ties.
func toFixed(x float64, digits int) string {
	if math.IsNaN(x) {
		return "NaN"
	}
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	scale := new(big.Float).SetPrec(256).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil))
	v := new(big.Float).SetPrec(256).SetFloat64(x)
	v.Mul(v, scale)
	v.Add(v, big.NewFloat(0.5))
	n, _ := v.Int(nil)

	s := n.String()
	if digits == 0 {
		return sign + s
	}
	if len(s) <= digits {
		s = strings.Repeat("0", digits-len(s)+1) + s
	}
	// a negative value rounding to zero keeps its sign, e.g. -0.000
	return sign + s[:len(s)-digits] + "." + s[len(s)-digits:]
}
