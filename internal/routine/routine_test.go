package routine

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/clube-madua/internal/model"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func task(archetype model.Archetype, points int, completedAt *time.Time) model.RoutineTask {
	return model.RoutineTask{Archetype: archetype, Points: points, CompletedAt: completedAt}
}

func at(tm time.Time) *time.Time { return &tm }

func TestIsCompletedToday(t *testing.T) {
	loc := saoPaulo(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

	tests := []struct {
		name        string
		completedAt *time.Time
		want        bool
	}{
		{name: "never completed", completedAt: nil, want: false},
		{name: "zero timestamp", completedAt: at(time.Time{}), want: false},
		{name: "earlier today", completedAt: at(time.Date(2026, 3, 10, 6, 30, 0, 0, loc)), want: true},
		{name: "yesterday", completedAt: at(time.Date(2026, 3, 9, 23, 59, 0, 0, loc)), want: false},
		{
			// 01:30 UTC 11-го в Сан-Паулу ещё 10-е число.
			name:        "local day differs from utc day",
			completedAt: at(time.Date(2026, 3, 11, 1, 30, 0, 0, time.UTC)),
			want:        true,
		},
		{
			// 02:30 UTC 10-го по местному времени 23:30 9-го.
			name:        "utc today but local yesterday",
			completedAt: at(time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)),
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompletedToday(task(model.ArchetypeKing, 10, tt.completedAt), now))
		})
	}
}

func TestIsCompletedToday_ZeroNow(t *testing.T) {
	done := time.Now()
	assert.False(t, IsCompletedToday(task(model.ArchetypeKing, 10, &done), time.Time{}))
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	today := at(now.Add(-time.Hour))
	yesterday := at(now.Add(-24 * time.Hour))

	tests := []struct {
		name  string
		tasks []model.RoutineTask
		want  Stats
	}{
		{
			name: "three balanced pillars",
			tasks: []model.RoutineTask{
				task(model.ArchetypeKing, 30, today),
				task(model.ArchetypeWarrior, 30, today),
				task(model.ArchetypeMage, 30, today),
			},
			want: Stats{King: 30, Warrior: 30, Mage: 30},
		},
		{
			name: "stale and pending tasks contribute nothing",
			tasks: []model.RoutineTask{
				task(model.ArchetypeKing, 40, yesterday),
				task(model.ArchetypeWarrior, 25, nil),
				task(model.ArchetypeMage, 15, today),
			},
			want: Stats{Mage: 15},
		},
		{
			name: "out of range points are summed as stored",
			tasks: []model.RoutineTask{
				task(model.ArchetypeWarrior, -5, today),
				task(model.ArchetypeWarrior, 150, today),
			},
			want: Stats{Warrior: 145},
		},
		{
			name: "unknown archetype ignored",
			tasks: []model.RoutineTask{
				task(model.Archetype("BARD"), 50, today),
			},
			want: Stats{},
		},
		{
			name:  "empty list",
			tasks: nil,
			want:  Stats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStats(tt.tasks, now))
		})
	}
}

func TestClassifyBalance(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  Balance
	}{
		{name: "nothing done", stats: Stats{}, want: BalanceNotStarted},
		{name: "harmony at threshold", stats: Stats{King: 30, Warrior: 30, Mage: 30}, want: BalanceHarmony},
		{name: "harmony with spread of twenty", stats: Stats{King: 50, Warrior: 30, Mage: 40}, want: BalanceHarmony},
		{name: "balanced but below harmony total", stats: Stats{King: 20, Warrior: 20, Mage: 20}, want: BalanceInProgress},
		{name: "warrior only", stats: Stats{Warrior: 50}, want: BalanceExcessAction},
		{name: "king dominates", stats: Stats{King: 80, Warrior: 10, Mage: 20}, want: BalancePlanningWithoutAction},
		{name: "mage dominates", stats: Stats{King: 5, Warrior: 5, Mage: 60}, want: BalanceWisdomWithoutMovement},
		{name: "small lead is progress", stats: Stats{King: 10, Warrior: 30, Mage: 0}, want: BalanceInProgress},
		{name: "two strong pillars", stats: Stats{King: 60, Warrior: 60, Mage: 0}, want: BalanceImbalanced},
		{name: "dominance margin is strict", stats: Stats{King: 0, Warrior: 30, Mage: 0}, want: BalanceInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBalance(tt.stats))
		})
	}
}

func TestScenarios(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	today := at(now.Add(-2 * time.Hour))

	stats := ComputeStats([]model.RoutineTask{
		task(model.ArchetypeKing, 30, today),
		task(model.ArchetypeWarrior, 30, today),
		task(model.ArchetypeMage, 30, today),
	}, now)
	assert.Equal(t, 90, stats.Total())
	assert.Equal(t, BalanceHarmony, ClassifyBalance(stats))

	stats = ComputeStats([]model.RoutineTask{task(model.ArchetypeWarrior, 50, today)}, now)
	assert.Equal(t, Stats{Warrior: 50}, stats)
	assert.Equal(t, BalanceExcessAction, ClassifyBalance(stats))

	stats = ComputeStats([]model.RoutineTask{task(model.ArchetypeWarrior, 50, nil)}, now)
	assert.Equal(t, BalanceNotStarted, ClassifyBalance(stats))
}

func TestSealUnseal(t *testing.T) {
	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := morning.Add(10 * time.Hour)

	tk := task(model.ArchetypeMage, 20, nil)
	assert.Equal(t, StatePending, StateOf(tk, morning))

	sealed := Seal(tk, morning)
	require.NotNil(t, sealed.CompletedAt)
	assert.Equal(t, morning, *sealed.CompletedAt)
	assert.Nil(t, tk.CompletedAt, "input must not be mutated")
	assert.Equal(t, StateSealed, StateOf(sealed, morning))

	again := Seal(sealed, evening)
	assert.Equal(t, morning, *again.CompletedAt)

	unsealed := Unseal(sealed)
	assert.Nil(t, unsealed.CompletedAt)
	assert.False(t, IsCompletedToday(unsealed, evening))
	assert.Equal(t, unsealed, Unseal(unsealed))

	resealed := Seal(unsealed, evening)
	assert.True(t, IsCompletedToday(resealed, evening))
}

func TestSeal_StaleTaskIsResealed(t *testing.T) {
	yesterday := time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC)
	now := yesterday.Add(12 * time.Hour)

	tk := task(model.ArchetypeKing, 10, &yesterday)
	assert.Equal(t, StateStale, StateOf(tk, now))
	assert.Zero(t, ComputeStats([]model.RoutineTask{tk}, now).Total())

	sealed := Seal(tk, now)
	assert.Equal(t, now, *sealed.CompletedAt)
	assert.Equal(t, 10, ComputeStats([]model.RoutineTask{sealed}, now).King)
}

func TestSorted(t *testing.T) {
	in := []model.RoutineTask{
		{ID: 3, Order: 2},
		{ID: 1, Order: 1},
		{ID: 2, Order: 1},
	}
	out := Sorted(in)
	assert.Equal(t, []int64{1, 2, 3}, []int64{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, int64(3), in[0].ID)
}

func TestNowIn(t *testing.T) {
	fixed := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return fixed })

	local := NowIn(clock, "America/Sao_Paulo")
	assert.Equal(t, 9, local.Day())
	assert.True(t, local.Equal(fixed))

	assert.Equal(t, time.UTC, NowIn(clock, "").Location())
	assert.Equal(t, time.UTC, NowIn(clock, "Not/AZone").Location())
}
