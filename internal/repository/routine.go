package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clube-madua/internal/model"
)

const taskColumns = `id, user_id, title, archetype, points, position, before_ritual, after_ritual, completed_at`

func scanTask(row pgx.Row) (model.RoutineTask, error) {
	var (
		t         model.RoutineTask
		archetype string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &archetype, &t.Points, &t.Order,
		&t.BeforeRitual, &t.AfterRitual, &t.CompletedAt)
	t.Archetype = model.Archetype(archetype)
	return t, err
}

// CreateTask сохраняет задачу распорядка пользователя.
func (r *PostgresRepository) CreateTask(ctx context.Context, t model.RoutineTask) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO routine_tasks (user_id, title, archetype, points, position, before_ritual, after_ritual)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.UserID, t.Title, string(t.Archetype), t.Points, t.Order, t.BeforeRitual, t.AfterRitual,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

// ListTasks возвращает задачи распорядка пользователя в заданном порядке.
func (r *PostgresRepository) ListTasks(ctx context.Context, userID int64) ([]model.RoutineTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM routine_tasks
		 WHERE user_id = $1
		 ORDER BY position, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var res []model.RoutineTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetTask возвращает задачу пользователя. Чужая задача не отличается от отсутствующей.
func (r *PostgresRepository) GetTask(ctx context.Context, userID, taskID int64) (*model.RoutineTask, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM routine_tasks WHERE id = $1 AND user_id = $2`,
		taskID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// SetTaskCompletedAt сохраняет отметку выполнения задачи; nil снимает её.
func (r *PostgresRepository) SetTaskCompletedAt(ctx context.Context, userID, taskID int64, completedAt *time.Time) error {
	return withRetry(ctx, retryDelays, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE routine_tasks SET completed_at = $3 WHERE id = $1 AND user_id = $2`,
			taskID, userID, completedAt,
		)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}
