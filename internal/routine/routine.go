// Package routine подсчитывает очки ежедневного распорядка по архетипам
// Король, Воин и Маг и определяет баланс дня.
package routine

import (
	"math"
	"sort"
	"time"

	"github.com/mmeshcher/clube-madua/internal/model"
)

// Stats содержит сумму очков задач, выполненных сегодня, по каждому архетипу.
type Stats struct {
	King    int `json:"king"`
	Warrior int `json:"warrior"`
	Mage    int `json:"mage"`
}

// Total возвращает сумму очков всех архетипов.
func (s Stats) Total() int {
	return s.King + s.Warrior + s.Mage
}

// Balance описывает классификацию дня по распределению очков.
type Balance string

const (
	BalanceNotStarted            Balance = "not_started"
	BalanceHarmony               Balance = "harmony"
	BalanceExcessAction          Balance = "excess_action"
	BalancePlanningWithoutAction Balance = "planning_without_action"
	BalanceWisdomWithoutMovement Balance = "wisdom_without_movement"
	BalanceInProgress            Balance = "balance_in_progress"
	BalanceImbalanced            Balance = "imbalanced"
)

const (
	harmonyMaxDiff  = 20
	harmonyMinTotal = 90
	dominanceMargin = 30
	progressMaxDiff = 30
)

// State описывает состояние задачи относительно текущего дня.
type State string

const (
	StatePending State = "pending"
	StateSealed  State = "sealed"
	// StateStale: задача запечатана в один из прошлых дней и сегодня снова ожидает выполнения.
	StateStale State = "stale"
)

// IsCompletedToday сообщает, запечатана ли задача в тот же календарный день, что и now.
// День определяется в часовом поясе now. Пустые или нулевые отметки считаются невыполненными.
func IsCompletedToday(task model.RoutineTask, now time.Time) bool {
	if task.CompletedAt == nil || task.CompletedAt.IsZero() || now.IsZero() {
		return false
	}
	return sameDay(task.CompletedAt.In(now.Location()), now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StateOf возвращает производное состояние задачи на момент now.
func StateOf(task model.RoutineTask, now time.Time) State {
	switch {
	case IsCompletedToday(task, now):
		return StateSealed
	case task.CompletedAt != nil && !task.CompletedAt.IsZero():
		return StateStale
	default:
		return StatePending
	}
}

// ComputeStats суммирует очки задач, выполненных сегодня, по архетипам.
func ComputeStats(tasks []model.RoutineTask, now time.Time) Stats {
	var s Stats
	for _, t := range tasks {
		if !IsCompletedToday(t, now) {
			continue
		}
		switch t.Archetype {
		case model.ArchetypeKing:
			s.King += t.Points
		case model.ArchetypeWarrior:
			s.Warrior += t.Points
		case model.ArchetypeMage:
			s.Mage += t.Points
		}
	}
	return s
}

// ClassifyBalance классифицирует день. Правила проверяются по порядку,
// диапазоны пересекаются, поэтому срабатывает первое подходящее.
func ClassifyBalance(s Stats) Balance {
	total := s.Total()
	if total == 0 {
		return BalanceNotStarted
	}

	avg := float64(total) / 3
	maxDiff := math.Max(
		math.Abs(float64(s.King)-avg),
		math.Max(math.Abs(float64(s.Warrior)-avg), math.Abs(float64(s.Mage)-avg)),
	)

	switch {
	case maxDiff <= harmonyMaxDiff && total >= harmonyMinTotal:
		return BalanceHarmony
	case s.Warrior > s.King+dominanceMargin && s.Warrior > s.Mage+dominanceMargin:
		return BalanceExcessAction
	case s.King > s.Warrior+dominanceMargin && s.King > s.Mage+dominanceMargin:
		return BalancePlanningWithoutAction
	case s.Mage > s.King+dominanceMargin && s.Mage > s.Warrior+dominanceMargin:
		return BalanceWisdomWithoutMovement
	case maxDiff <= progressMaxDiff:
		return BalanceInProgress
	default:
		return BalanceImbalanced
	}
}

// Seal отмечает задачу выполненной в момент now. Задача, уже запечатанная
// сегодня, возвращается без изменений.
func Seal(task model.RoutineTask, now time.Time) model.RoutineTask {
	if IsCompletedToday(task, now) {
		return task
	}
	completed := now
	task.CompletedAt = &completed
	return task
}

// Unseal снимает отметку о выполнении.
func Unseal(task model.RoutineTask) model.RoutineTask {
	task.CompletedAt = nil
	return task
}

// Sorted возвращает копию задач, упорядоченную по Order, затем по ID.
func Sorted(tasks []model.RoutineTask) []model.RoutineTask {
	out := make([]model.RoutineTask, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}
