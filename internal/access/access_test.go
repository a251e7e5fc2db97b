package access

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/unicode/norm"

	"github.com/mmeshcher/clube-madua/internal/metrics"
	"github.com/mmeshcher/clube-madua/internal/model"
)

var allStatuses = []model.SubscriptionStatus{
	model.SubscriptionActive,
	model.SubscriptionInactive,
	model.SubscriptionCanceled,
	model.SubscriptionPastDue,
	model.SubscriptionDemo,
}

func viewerWith(status model.SubscriptionStatus, purchased ...int64) model.Viewer {
	v := model.Viewer{UserID: 7, Status: status, PurchasedCourseIDs: map[int64]struct{}{}}
	for _, id := range purchased {
		v.PurchasedCourseIDs[id] = struct{}{}
	}
	return v
}

func TestEvaluatePostOrRecipe(t *testing.T) {
	for _, status := range allStatuses {
		viewer := viewerWith(status)

		t.Run("free published "+string(status), func(t *testing.T) {
			post := model.Post{IsPublished: true, IsPremium: false}
			assert.Equal(t, Full, EvaluatePostOrRecipe(post, viewer))
		})

		t.Run("unpublished "+string(status), func(t *testing.T) {
			assert.Equal(t, Locked, EvaluatePostOrRecipe(model.Post{IsPublished: false, IsPremium: true}, viewer))
			assert.Equal(t, Locked, EvaluatePostOrRecipe(model.Post{IsPublished: false, IsPremium: false}, viewer))
		})

		t.Run("premium published "+string(status), func(t *testing.T) {
			post := model.Post{IsPublished: true, IsPremium: true, Kind: model.ContentRecipe}
			got := EvaluatePostOrRecipe(post, viewer)
			if status == model.SubscriptionActive {
				assert.Equal(t, Full, got)
				return
			}
			assert.Equal(t, LevelPreview, got.Level)
			assert.Equal(t, 30, got.Percent)
		})
	}
}

func TestEvaluatePostOrRecipe_Anonymous(t *testing.T) {
	post := model.Post{IsPublished: true}
	assert.Equal(t, Full, EvaluatePostOrRecipe(post, model.AnonymousViewer()))

	post.IsPremium = true
	assert.Equal(t, PreviewOf(PreviewPercent), EvaluatePostOrRecipe(post, model.AnonymousViewer()))
}

func TestEvaluatePostOrRecipe_Idempotent(t *testing.T) {
	post := model.Post{IsPublished: true, IsPremium: true}
	viewer := viewerWith(model.SubscriptionPastDue)

	first := EvaluatePostOrRecipe(post, viewer)
	second := EvaluatePostOrRecipe(post, viewer)
	assert.Equal(t, first, second)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: ""},
		{name: "shorter than one char share", content: "ab", want: ""},
		{name: "ten chars", content: "0123456789", want: "012"},
		{name: "eleven chars", content: "0123456789a", want: "012"},
		{name: "accented runes", content: "açúcar mascavo", want: "açúc"},
		{name: "decomposed accents are composed first", content: "cafe\u0301 com pa\u0303o", want: "caf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.content, PreviewPercent))
		})
	}
}

func TestTruncate_LengthIsFloorOfThirtyPercent(t *testing.T) {
	for n := 0; n <= 200; n++ {
		content := strings.Repeat("x", n)
		got := Truncate(content, PreviewPercent)
		require.Equal(t, n*3/10, len([]rune(got)), "length %d", n)
		require.True(t, strings.HasPrefix(content, got))
	}
}

func TestTruncate_NormalisesAtAnyPercent(t *testing.T) {
	decomposed := "cafe\u0301 com pa\u0303o"
	composed := norm.NFC.String(decomposed)

	assert.Equal(t, composed, Truncate(decomposed, 100))
	assert.Equal(t, composed, Truncate(decomposed, 150))
	for _, percent := range []int{10, 30, 50, 99} {
		got := Truncate(decomposed, percent)
		assert.True(t, strings.HasPrefix(composed, got), "percent %d", percent)
	}
}

func TestRender(t *testing.T) {
	body := "Receita completa do pão de fermentação natural"

	got, cta := Render(body, Full)
	assert.Equal(t, body, got)
	assert.False(t, cta)

	got, cta = Render(body, PreviewOf(PreviewPercent))
	assert.Equal(t, Truncate(body, PreviewPercent), got)
	assert.True(t, cta)

	got, cta = Render(body, Locked)
	assert.Empty(t, got)
	assert.False(t, cta)
}

func TestEvaluateCourse(t *testing.T) {
	const courseID = 11

	tests := []struct {
		name   string
		course model.Course
		viewer model.Viewer
		want   CourseAccess
	}{
		{
			name:   "free course ignores every flag",
			course: model.Course{ID: courseID, IsPremium: false, IsInClub: true, IsStandalone: true},
			viewer: model.AnonymousViewer(),
			want:   CourseAccess{HasAccess: true, Reason: ReasonNone},
		},
		{
			name:   "free course without flags",
			course: model.Course{ID: courseID},
			viewer: viewerWith(model.SubscriptionCanceled),
			want:   CourseAccess{HasAccess: true, Reason: ReasonNone},
		},
		{
			name:   "club course active member",
			course: model.Course{ID: courseID, IsPremium: true, IsInClub: true},
			viewer: viewerWith(model.SubscriptionActive),
			want:   CourseAccess{HasAccess: true, Reason: ReasonClubMember},
		},
		{
			name:   "club course demo member",
			course: model.Course{ID: courseID, IsPremium: true, IsInClub: true},
			viewer: viewerWith(model.SubscriptionDemo),
			want:   CourseAccess{HasAccess: false, Reason: ReasonNone},
		},
		{
			name:   "standalone purchased",
			course: model.Course{ID: courseID, IsPremium: true, IsStandalone: true},
			viewer: viewerWith(model.SubscriptionInactive, courseID),
			want:   CourseAccess{HasAccess: true, Reason: ReasonIndividualPurchase},
		},
		{
			name:   "standalone purchased other course",
			course: model.Course{ID: courseID, IsPremium: true, IsStandalone: true},
			viewer: viewerWith(model.SubscriptionInactive, 12),
			want:   CourseAccess{HasAccess: false, Reason: ReasonNone},
		},
		{
			name:   "club member who also purchased gets club reason",
			course: model.Course{ID: courseID, IsPremium: true, IsInClub: true, IsStandalone: true},
			viewer: viewerWith(model.SubscriptionActive, courseID),
			want:   CourseAccess{HasAccess: true, Reason: ReasonClubMember},
		},
		{
			name:   "lapsed member falls back to purchase",
			course: model.Course{ID: courseID, IsPremium: true, IsInClub: true, IsStandalone: true},
			viewer: viewerWith(model.SubscriptionPastDue, courseID),
			want:   CourseAccess{HasAccess: true, Reason: ReasonIndividualPurchase},
		},
		{
			name:   "purchase of club-only course does not count",
			course: model.Course{ID: courseID, IsPremium: true, IsInClub: true},
			viewer: viewerWith(model.SubscriptionInactive, courseID),
			want:   CourseAccess{HasAccess: false, Reason: ReasonNone},
		},
		{
			name:   "misconfigured premium course locks everyone",
			course: model.Course{ID: courseID, IsPremium: true},
			viewer: viewerWith(model.SubscriptionActive, courseID),
			want:   CourseAccess{HasAccess: false, Reason: ReasonNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCourse(tt.course, tt.viewer))
		})
	}
}

func TestEvaluatorCourse_ReportsAnomaly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := NewEvaluator(zap.New(core), m)

	res := e.Course(model.Course{ID: 3, Title: "Fermentação", IsPremium: true}, viewerWith(model.SubscriptionActive))
	assert.False(t, res.HasAccess)
	assert.Equal(t, ReasonNone, res.Reason)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "premium course has no access path", logs.All()[0].Message)

	count, err := testutil.GatherAndCount(reg, "madua_catalog_config_anomalies_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEvaluatorCourse_NoWarningForConfiguredCourse(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := NewEvaluator(zap.New(core), nil)

	res := e.Course(model.Course{ID: 3, IsPremium: true, IsInClub: true}, viewerWith(model.SubscriptionActive))
	assert.True(t, res.HasAccess)
	assert.Zero(t, logs.Len())
}

func TestHasNoAccessPath(t *testing.T) {
	assert.True(t, HasNoAccessPath(model.Course{IsPremium: true}))
	assert.False(t, HasNoAccessPath(model.Course{IsPremium: false}))
	assert.False(t, HasNoAccessPath(model.Course{IsPremium: true, IsInClub: true}))
	assert.False(t, HasNoAccessPath(model.Course{IsPremium: true, IsStandalone: true}))
}
