package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/validation"
)

// Anomaly описывает курс, настроенный так, что его нельзя получить.
type Anomaly struct {
	CourseID int64
	Title    string
	Problem  string
}

// AuditCatalog находит платные курсы без пути покупки.
func (s *Service) AuditCatalog(ctx context.Context) ([]Anomaly, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	var res []Anomaly
	for _, c := range courses {
		problem := validation.CourseAnomaly(c)
		if problem == "" {
			continue
		}
		res = append(res, Anomaly{CourseID: c.ID, Title: c.Title, Problem: problem})
	}
	return res, nil
}

// StartCatalogAudit запускает периодическую проверку каталога и блокируется до отмены ctx.
func (s *Service) StartCatalogAudit(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCatalogAudit(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCatalogAudit(ctx)
		}
	}
}

func (s *Service) runCatalogAudit(ctx context.Context) {
	anomalies, err := s.AuditCatalog(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("catalog audit failed", zap.Error(err))
		}
		return
	}

	for _, a := range anomalies {
		s.logger.Warn("catalog configuration anomaly",
			zap.Int64("courseID", a.CourseID),
			zap.String("title", a.Title),
			zap.String("problem", a.Problem),
		)
		s.metrics.IncAnomaly("course_no_access_path")
	}
}
