package exports

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"omnichat_backend/internal/leads/scoring"

	"github.com/google/uuid"
)

type memoryStore struct {
	bucket      string
	key         string
	contentType string
	body        string
	err         error
}

func (m *memoryStore) EnsureBucketExists(context.Context, string) error { return nil }

func (m *memoryStore) PutObject(_ context.Context, bucket, key, contentType string, reader io.Reader, size int64) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.bucket, m.key, m.contentType, m.body = bucket, key, contentType, string(data)
	return nil
}

var generatedAt = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

func sampleResults() []scoring.Result {
	return []scoring.Result{
		{LeadID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Score: 88, Label: scoring.LabelHot, Version: "v1", ComputedAt: generatedAt},
		{LeadID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Score: 12, Label: scoring.LabelCold, Version: "v1", ComputedAt: generatedAt},
	}
}

func TestRenderScoreCSV(t *testing.T) {
	out, err := RenderScoreCSV(sampleResults())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "lead_id,score,label,version,computed_at\n" +
		"11111111-1111-1111-1111-111111111111,88,Hot,v1,2026-03-10T03:00:00Z\n" +
		"22222222-2222-2222-2222-222222222222,12,Cold,v1,2026-03-10T03:00:00Z\n"
	if string(out) != want {
		t.Fatalf("unexpected csv:\n%s", out)
	}
}

func TestRenderScoreCSVEmptyHasHeader(t *testing.T) {
	out, err := RenderScoreCSV(nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "lead_id,score,label,version,computed_at\n" {
		t.Fatalf("unexpected csv: %q", out)
	}
}

func TestWriteScoreReportUploadsUnderTenantPrefix(t *testing.T) {
	store := &memoryStore{}
	w := NewReportWriter(store, "lead-score-reports")
	tenant := uuid.MustParse("33333333-3333-3333-3333-333333333333")

	key, err := w.WriteScoreReport(context.Background(), tenant, generatedAt, sampleResults())
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	wantKey := "33333333-3333-3333-3333-333333333333/lead-scores/20260310T030000Z.csv"
	if key != wantKey || store.key != wantKey {
		t.Fatalf("expected key %s, got %s (stored %s)", wantKey, key, store.key)
	}
	if store.bucket != "lead-score-reports" || store.contentType != "text/csv" {
		t.Fatalf("unexpected upload target: %s %s", store.bucket, store.contentType)
	}
	if strings.Count(store.body, "\n") != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", store.body)
	}
}

func TestWriteScoreReportPropagatesUploadFailure(t *testing.T) {
	w := NewReportWriter(&memoryStore{err: errors.New("bucket missing")}, "b")
	if _, err := w.WriteScoreReport(context.Background(), uuid.New(), generatedAt, sampleResults()); err == nil {
		t.Fatal("expected upload error")
	}
}
