package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/mmeshcher/clube-madua/internal/access"
	"github.com/mmeshcher/clube-madua/internal/model"
	"github.com/mmeshcher/clube-madua/internal/repository"
	"github.com/mmeshcher/clube-madua/internal/validation"
)

// PostView описывает статью или рецепт так, как их видит посетитель.
type PostView struct {
	Post    model.Post
	Verdict access.Verdict
	Body    string
	ShowCTA bool
}

// CourseView содержит курс вместе с решением о доступе и прогрессом посетителя.
// Progress заполняется только для вошедшего посетителя с доступом.
type CourseView struct {
	Course   model.Course
	Access   access.CourseAccess
	Progress *model.CourseProgress
}

// ViewPost возвращает статью или рецепт для посетителя. Неопубликованная статья
// не отличается от отсутствующей.
func (s *Service) ViewPost(ctx context.Context, viewerID int64, slug string) (*PostView, error) {
	post, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	viewer, err := s.Viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	verdict := s.evaluator.Post(*post, viewer)
	if verdict.Level == access.LevelLocked {
		return nil, repository.ErrNotFound
	}

	body, cta := access.Render(post.Content, verdict)
	return &PostView{
		Post:    *post,
		Verdict: verdict,
		Body:    body,
		ShowCTA: cta,
	}, nil
}

// AddComment добавляет комментарий. Комментировать можно только статью,
// открытую посетителю целиком.
func (s *Service) AddComment(ctx context.Context, userID int64, slug, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyComment
	}

	view, err := s.ViewPost(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if view.Verdict.Level != access.LevelFull {
		return nil, ErrNoAccess
	}

	return s.repo.AddComment(ctx, view.Post.ID, userID, body)
}

// ListComments возвращает комментарии опубликованной статьи.
func (s *Service) ListComments(ctx context.Context, slug string) ([]model.Comment, error) {
	post, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished {
		return nil, repository.ErrNotFound
	}
	return s.repo.ListComments(ctx, post.ID)
}

// CreatePost сохраняет статью или рецепт, созданные администратором.
// Текст хранится в NFC, поэтому превью всегда является префиксом тела.
func (s *Service) CreatePost(ctx context.Context, p model.Post) (int64, error) {
	if strings.TrimSpace(p.Title) == "" {
		return 0, validation.ErrEmptyTitle
	}
	if !validation.IsValidSlug(p.Slug) {
		return 0, fmt.Errorf("%w: %q", validation.ErrInvalidSlug, p.Slug)
	}
	if p.Kind == "" {
		p.Kind = model.ContentPost
	}
	p.Title = norm.NFC.String(p.Title)
	p.Content = norm.NFC.String(p.Content)
	return s.repo.CreatePost(ctx, p)
}

// CreateCategory создаёт рубрику.
func (s *Service) CreateCategory(ctx context.Context, name string) (int64, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return 0, validation.ErrEmptyTitle
	}
	return s.repo.CreateCategory(ctx, name)
}

// ListCategories возвращает все рубрики.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) publishedCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, repository.ErrNotFound
	}
	return course, nil
}

// ViewCourse возвращает курс, решение о доступе и прогресс посетителя.
func (s *Service) ViewCourse(ctx context.Context, viewerID, courseID int64) (*CourseView, error) {
	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	viewer, err := s.Viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	view := &CourseView{
		Course: *course,
		Access: s.evaluator.Course(*course, viewer),
	}

	if viewerID != 0 && view.Access.HasAccess {
		progress, err := s.repo.GetCourseProgress(ctx, viewerID, courseID)
		if err != nil {
			return nil, err
		}
		view.Progress = &progress
	}

	return view, nil
}

// PurchaseCourse фиксирует отдельную покупку курса, оплаченную во внешней
// платёжной системе. Вызывается только администратором или платёжным
// вебхуком. Возвращает true, если курс уже был куплен.
func (s *Service) PurchaseCourse(ctx context.Context, userID, courseID int64) (bool, error) {
	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return false, err
	}
	if !course.IsStandalone {
		return false, ErrNotStandalone
	}

	already, err := s.repo.RecordPurchase(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	s.invalidateViewer(ctx, userID)

	if !already {
		s.logger.Info("course purchased", zap.Int64("userID", userID), zap.Int64("courseID", courseID))
	}
	return already, nil
}

// CompleteLesson отмечает урок пройденным и возвращает обновлённый прогресс.
func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID int64) (model.CourseProgress, error) {
	view, err := s.ViewCourse(ctx, userID, courseID)
	if err != nil {
		return model.CourseProgress{}, err
	}
	if !view.Access.HasAccess {
		return model.CourseProgress{}, ErrNoAccess
	}

	if err := s.repo.MarkLessonComplete(ctx, userID, courseID, lessonID); err != nil {
		return model.CourseProgress{}, err
	}

	return s.repo.GetCourseProgress(ctx, userID, courseID)
}

// CreateCourse сохраняет курс, созданный администратором. Курс без пути
// покупки сохраняется, но попадает в лог как ошибка конфигурации.
func (s *Service) CreateCourse(ctx context.Context, c model.Course) (int64, error) {
	if err := validation.ValidateCourse(c); err != nil {
		return 0, err
	}

	id, err := s.repo.CreateCourse(ctx, c)
	if err != nil {
		return 0, err
	}

	if problem := validation.CourseAnomaly(c); problem != "" {
		s.logger.Warn("course created with configuration anomaly",
			zap.Int64("courseID", id),
			zap.String("problem", problem),
		)
		s.metrics.IncAnomaly("course_no_access_path")
	}
	return id, nil
}

// CreateLesson добавляет урок к существующему курсу.
func (s *Service) CreateLesson(ctx context.Context, l model.Lesson) (int64, error) {
	if strings.TrimSpace(l.Title) == "" {
		return 0, validation.ErrEmptyTitle
	}
	if _, err := s.repo.GetCourse(ctx, l.CourseID); err != nil {
		return 0, err
	}
	return s.repo.CreateLesson(ctx, l)
}
