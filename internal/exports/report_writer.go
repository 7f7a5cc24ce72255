package exports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"omnichat_backend/internal/adapters/storage"
	"omnichat_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

const reportContentType = "text/csv"

// ReportWriter uploads tenant score reports. It implements scoring.ReportWriter.
type ReportWriter struct {
	store  storage.ObjectStore
	bucket string
}

func NewReportWriter(store storage.ObjectStore, bucket string) *ReportWriter {
	return &ReportWriter{store: store, bucket: bucket}
}

// ReportKey is the object key of a report: {tenant}/lead-scores/{timestamp}.csv.
func ReportKey(tenantID uuid.UUID, generatedAt time.Time) string {
	return fmt.Sprintf("%s/lead-scores/%s.csv", tenantID, generatedAt.UTC().Format("20060102T150405Z"))
}

func (w *ReportWriter) WriteScoreReport(ctx context.Context, tenantID uuid.UUID, generatedAt time.Time, results []scoring.Result) (string, error) {
	body, err := RenderScoreCSV(results)
	if err != nil {
		return "", fmt.Errorf("render score report: %w", err)
	}

	key := ReportKey(tenantID, generatedAt)
	if err := w.store.PutObject(ctx, w.bucket, key, reportContentType, bytes.NewReader(body), int64(len(body))); err != nil {
		return "", fmt.Errorf("upload score report: %w", err)
	}
	return key, nil
}

var _ scoring.ReportWriter = (*ReportWriter)(nil)
