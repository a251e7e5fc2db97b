package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveVerdict("recipe", "preview")
	m.ObserveVerdict("recipe", "preview")
	m.ObserveCourseAccess(true, "club_member")
	m.IncAnomaly("course_no_access_path")
	m.IncRoutineAction("seal")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.accessVerdicts.WithLabelValues("recipe", "preview")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.courseAccess.WithLabelValues("true", "club_member")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.anomalies.WithLabelValues("course_no_access_path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routineSeals.WithLabelValues("seal")))
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.IncRoutineAction("unseal")
	second.IncRoutineAction("unseal")

	n, err := testutil.GatherAndCount(reg, "madua_routine_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.routineSeals.WithLabelValues("unseal")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveVerdict("post", "full")
		m.ObserveCourseAccess(false, "none")
		m.IncAnomaly("x")
		m.IncRoutineAction("seal")
	})
}
