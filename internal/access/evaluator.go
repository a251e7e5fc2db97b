package access

import (
	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/metrics"
	"github.com/mmeshcher/clube-madua/internal/model"
)

// Evaluator применяет правила доступа и сообщает о решениях в лог и метрики.
// Сами правила остаются чистыми функциями пакета.
type Evaluator struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEvaluator создаёт Evaluator. Оба аргумента могут быть nil.
func NewEvaluator(logger *zap.Logger, m *metrics.Metrics) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger, metrics: m}
}

// Post проверяет доступ к статье или рецепту.
func (e *Evaluator) Post(post model.Post, viewer model.Viewer) Verdict {
	v := EvaluatePostOrRecipe(post, viewer)
	e.metrics.ObserveVerdict(string(post.Kind), string(v.Level))
	return v
}

// Course проверяет доступ к курсу и предупреждает о курсе без пути покупки.
func (e *Evaluator) Course(course model.Course, viewer model.Viewer) CourseAccess {
	if HasNoAccessPath(course) {
		e.logger.Warn("premium course has no access path",
			zap.Int64("courseID", course.ID),
			zap.String("title", course.Title),
		)
		e.metrics.IncAnomaly("course_no_access_path")
	}

	res := EvaluateCourse(course, viewer)
	e.metrics.ObserveCourseAccess(res.HasAccess, string(res.Reason))
	return res
}
