package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/model"
	"github.com/mmeshcher/clube-madua/internal/routine"
	"github.com/mmeshcher/clube-madua/internal/validation"
)

// TaskView содержит задачу распорядка и её состояние на сегодня.
type TaskView struct {
	Task  model.RoutineTask
	State routine.State
}

// RoutineView содержит распорядок пользователя на сегодня с очками и балансом.
type RoutineView struct {
	Now     time.Time
	Tasks   []TaskView
	Stats   routine.Stats
	Balance routine.Balance
}

func (s *Service) userNow(ctx context.Context, userID int64) (time.Time, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return routine.NowIn(s.clock, u.Timezone), nil
}

// GetRoutine возвращает задачи пользователя, очки по архетипам и баланс дня.
// «Сегодня» считается в часовом поясе пользователя.
func (s *Service) GetRoutine(ctx context.Context, userID int64) (*RoutineView, error) {
	now, err := s.userNow(ctx, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks = routine.Sorted(tasks)

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{Task: t, State: routine.StateOf(t, now)})
	}

	stats := routine.ComputeStats(tasks, now)
	return &RoutineView{
		Now:     now,
		Tasks:   views,
		Stats:   stats,
		Balance: routine.ClassifyBalance(stats),
	}, nil
}

// SealTask отмечает задачу пользователя выполненной сегодня.
func (s *Service) SealTask(ctx context.Context, userID, taskID int64) (*TaskView, error) {
	return s.updateTask(ctx, userID, taskID, "seal", func(t model.RoutineTask, now time.Time) model.RoutineTask {
		return routine.Seal(t, now)
	})
}

// UnsealTask снимает отметку о выполнении задачи.
func (s *Service) UnsealTask(ctx context.Context, userID, taskID int64) (*TaskView, error) {
	return s.updateTask(ctx, userID, taskID, "unseal", func(t model.RoutineTask, _ time.Time) model.RoutineTask {
		return routine.Unseal(t)
	})
}

func (s *Service) updateTask(
	ctx context.Context,
	userID, taskID int64,
	action string,
	apply func(model.RoutineTask, time.Time) model.RoutineTask,
) (*TaskView, error) {
	now, err := s.userNow(ctx, userID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	updated := apply(*task, now)
	if !sameCompletion(task.CompletedAt, updated.CompletedAt) {
		if err := s.repo.SetTaskCompletedAt(ctx, userID, taskID, updated.CompletedAt); err != nil {
			return nil, err
		}
		s.metrics.IncRoutineAction(action)
		s.logger.Debug("routine task updated",
			zap.Int64("userID", userID),
			zap.Int64("taskID", taskID),
			zap.String("action", action),
		)
	}

	return &TaskView{Task: updated, State: routine.StateOf(updated, now)}, nil
}

func sameCompletion(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// CreateTask создаёт задачу распорядка для пользователя.
func (s *Service) CreateTask(ctx context.Context, t model.RoutineTask) (int64, error) {
	if err := validation.ValidateTask(t); err != nil {
		return 0, err
	}
	if _, err := s.repo.GetUserByID(ctx, t.UserID); err != nil {
		return 0, err
	}
	t.CompletedAt = nil
	return s.repo.CreateTask(ctx, t)
}
