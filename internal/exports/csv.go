// Package exports renders lead score reports and stores them in object storage.
package exports

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"omnichat_backend/internal/leads/scoring"
)

var scoreCSVHeader = []string{"lead_id", "score", "label", "version", "computed_at"}

// RenderScoreCSV writes one row per result, in the given order.
func RenderScoreCSV(results []scoring.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(scoreCSVHeader); err != nil {
		return nil, err
	}
	for _, r := range results {
		row := []string{
			r.LeadID.String(),
			strconv.Itoa(r.Score),
			string(r.Label),
			r.Version,
			r.ComputedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
