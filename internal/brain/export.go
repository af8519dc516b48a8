package brain

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
)

var predictionHeader = []string{
	"symbol", "event_expiry", "score", "decision", "direction", "conviction", "structure",
	"rr_25d", "vol_pcr", "net_thrust", "iv_bump", "spread_pct_atm", "beta_adj_return",
}

// SortByAbsScore orders records by |score| descending, ties by symbol
func SortByAbsScore(records []contracts.DailySignalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ai, aj := math.Abs(records[i].Score), math.Abs(records[j].Score)
		if ai != aj {
			return ai > aj
		}
		return records[i].Symbol() < records[j].Symbol()
	})
}

// ExportPredictions writes predictions_YYYYMMDD.csv under dir and returns its path
func ExportPredictions(dir string, tradeDate time.Time, records []contracts.DailySignalRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("predictions_%s.csv", tradeDate.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WritePredictions(f, records); err != nil {
		return "", err
	}
	return path, f.Close()
}

// WritePredictions writes records as CSV in the given order. 값이 없으면 빈 칸
func WritePredictions(w io.Writer, records []contracts.DailySignalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(predictionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		b := r.Bundle
		expiry := ""
		if b.EventExpiry != nil {
			expiry = b.EventExpiry.Format(dateLayout)
		}
		row := []string{
			b.Symbol,
			expiry,
			formatFloat(&r.Score),
			string(r.Decision),
			string(r.Direction),
			string(r.Conviction),
			string(r.Structure),
			formatFloat(b.RR25),
			formatFloat(b.VolPCR),
			formatFloat(b.NetThrust),
			formatFloat(b.IVBump),
			formatFloat(b.SpreadPctATM),
			formatFloat(b.BetaAdjReturn),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", b.Symbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
