package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

// WritePeriodsCSV writes one row per holding period to path.
func WritePeriodsCSV(path string, periods []Period) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodePeriodsCSV(f, periods)
}

func EncodePeriodsCSV(out io.Writer, periods []Period) error {
	w := csv.NewWriter(out)

	header := []string{
		"index",
		"as_of",
		"next_as_of",
		"period_return",
		"equity",
		"weights",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, p := range periods {
		row := []string{
			strconv.Itoa(i),
			p.AsOf,
			p.NextAsOf,
			fmtFloat(p.PeriodReturn),
			fmtFloat(p.Equity),
			fmtWeights(p),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// fmtWeights renders "IEF=0.500000;SPY=0.500000" in ticker order.
func fmtWeights(p Period) string {
	parts := make([]string, 0, len(p.Weights))
	for _, t := range p.Weights.Tickers() {
		parts = append(parts, t+"="+fmtFloat(p.Weights[t]))
	}
	return strings.Join(parts, ";")
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
