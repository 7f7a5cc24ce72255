package repository

import (
	"context"
	"fmt"
	"time"

	"omnichat_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// attachChildren loads timeline events, notes and tasks for leads in three
// queries and attaches them in place.
func (r *Repository) attachChildren(ctx context.Context, leads []domain.Lead) error {
	ids := lo.Map(leads, func(l domain.Lead, _ int) uuid.UUID { return l.ID })
	index := make(map[uuid.UUID]int, len(leads))
	for i, l := range leads {
		index[l.ID] = i
	}

	if err := r.loadTimeline(ctx, ids, func(id uuid.UUID, ev domain.TimelineEvent) {
		leads[index[id]].Timeline = append(leads[index[id]].Timeline, ev)
	}); err != nil {
		return err
	}
	if err := r.loadNotes(ctx, ids, func(id uuid.UUID, n domain.Note) {
		leads[index[id]].Notes = append(leads[index[id]].Notes, n)
	}); err != nil {
		return err
	}
	return r.loadTasks(ctx, ids, func(id uuid.UUID, t domain.Task) {
		leads[index[id]].Tasks = append(leads[index[id]].Tasks, t)
	})
}

func (r *Repository) loadTimeline(ctx context.Context, ids []uuid.UUID, add func(uuid.UUID, domain.TimelineEvent)) error {
	rows, err := r.db.Query(ctx, `
		SELECT lead_id, event_type, COALESCE(description, ''), occurred_at
		FROM lead_timeline_events
		WHERE lead_id = ANY($1)
		ORDER BY lead_id, occurred_at`, ids)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leadID uuid.UUID
			ev     domain.TimelineEvent
		)
		if err := rows.Scan(&leadID, &ev.Type, &ev.Description, &ev.OccurredAt); err != nil {
			return fmt.Errorf("scan timeline event: %w", err)
		}
		add(leadID, ev)
	}
	return rows.Err()
}

func (r *Repository) loadNotes(ctx context.Context, ids []uuid.UUID, add func(uuid.UUID, domain.Note)) error {
	rows, err := r.db.Query(ctx, `
		SELECT lead_id, body, created_at
		FROM lead_notes
		WHERE lead_id = ANY($1)
		ORDER BY lead_id, created_at`, ids)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leadID uuid.UUID
			note   domain.Note
		)
		if err := rows.Scan(&leadID, &note.Body, &note.CreatedAt); err != nil {
			return fmt.Errorf("scan note: %w", err)
		}
		add(leadID, note)
	}
	return rows.Err()
}

func (r *Repository) loadTasks(ctx context.Context, ids []uuid.UUID, add func(uuid.UUID, domain.Task)) error {
	rows, err := r.db.Query(ctx, `
		SELECT lead_id, title, status, due_at
		FROM lead_tasks
		WHERE lead_id = ANY($1)
		ORDER BY lead_id, created_at`, ids)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			leadID uuid.UUID
			task   domain.Task
			status string
			dueAt  *time.Time
		)
		if err := rows.Scan(&leadID, &task.Title, &status, &dueAt); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		task.Status = domain.TaskStatus(status)
		task.DueAt = dueAt
		add(leadID, task)
	}
	return rows.Err()
}
