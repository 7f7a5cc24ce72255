// Package repository reads lead snapshots from the hosted backend's tables and
// writes computed scores back.
//
// The tables are owned by the hosted backend. The columns this package relies on:
//
//	leads(id uuid, organization_id uuid, name text, source text, stage text,
//	      tags text[], lead_value numeric, created_at timestamptz, deleted_at timestamptz,
//	      score int, score_label text, score_version text, score_updated_at timestamptz)
//	lead_timeline_events(lead_id uuid, organization_id uuid, event_type text, description text, occurred_at timestamptz)
//	lead_notes(lead_id uuid, organization_id uuid, body text, created_at timestamptz)
//	lead_tasks(lead_id uuid, organization_id uuid, title text, status text, due_at timestamptz, created_at timestamptz)
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omnichat_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("lead not found")

// DBTX is the subset of pgx used here. *pgxpool.Pool and pgxmock satisfy it.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DBTX
}

func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// Cursor marks the last lead of a page for keyset pagination on (created_at, id).
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the cursor that follows lead.
func CursorAfter(lead domain.Lead) *Cursor {
	return &Cursor{CreatedAt: lead.CreatedAt, ID: lead.ID}
}

// UpdateScoreParams is the score written back onto a lead row.
type UpdateScoreParams struct {
	LeadID   uuid.UUID
	TenantID uuid.UUID
	Score    int
	Label    string
	Version  string
	ScoredAt time.Time
}

const leadColumns = `
	id, organization_id, COALESCE(name, ''), COALESCE(source, ''), COALESCE(stage, ''),
	COALESCE(tags, '{}'), COALESCE(lead_value, 0)::float8, created_at,
	COALESCE(score, 0)::int4, COALESCE(score_version, ''), score_updated_at`

// GetSnapshot loads one lead with its timeline, notes and tasks.
func (r *Repository) GetSnapshot(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL`, leadID, tenantID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead snapshot: %w", err)
	}

	leads := []domain.Lead{lead}
	if err := r.attachChildren(ctx, leads); err != nil {
		return domain.Lead{}, err
	}
	return leads[0], nil
}

// ListSnapshots returns up to limit leads of a tenant ordered by (created_at, id),
// starting after the cursor when one is given.
func (r *Repository) ListSnapshots(ctx context.Context, tenantID uuid.UUID, after *Cursor, limit int) ([]domain.Lead, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.db.Query(ctx, `SELECT `+leadColumns+`
			FROM leads
			WHERE organization_id = $1 AND deleted_at IS NULL
			ORDER BY created_at, id
			LIMIT $2`, tenantID, limit)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+leadColumns+`
			FROM leads
			WHERE organization_id = $1 AND deleted_at IS NULL
				AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id
			LIMIT $4`, tenantID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list lead snapshots: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead snapshot: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lead snapshots: %w", err)
	}
	rows.Close()

	if len(leads) == 0 {
		return leads, nil
	}
	if err := r.attachChildren(ctx, leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// ListTenantIDs returns every organization that owns at least one live lead.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT organization_id
		FROM leads
		WHERE deleted_at IS NULL
		ORDER BY organization_id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateScore writes the score columns of a lead.
func (r *Repository) UpdateScore(ctx context.Context, params UpdateScoreParams) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads
		SET score = $3, score_label = $4, score_version = $5, score_updated_at = $6
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL`,
		params.LeadID, params.TenantID, params.Score, params.Label, params.Version, params.ScoredAt)
	if err != nil {
		return fmt.Errorf("update lead score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead          domain.Lead
		source, stage string
		score         int32
	)
	if err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &source, &stage,
		&lead.Tags, &lead.LeadValue, &lead.CreatedAt,
		&score, &lead.ScoreVersion, &lead.ScoredAt,
	); err != nil {
		return domain.Lead{}, err
	}
	lead.Source = domain.ParseSource(source)
	lead.Stage = domain.ParseStage(stage)
	lead.LeadValue = domain.SanitizeAmount(lead.LeadValue)
	lead.Score = int(score)
	return lead, nil
}
