// Package service реализует бизнес-логику платформы Клуб Мадуа.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/clube-madua/internal/access"
	"github.com/mmeshcher/clube-madua/internal/cache"
	"github.com/mmeshcher/clube-madua/internal/metrics"
	"github.com/mmeshcher/clube-madua/internal/model"
	"github.com/mmeshcher/clube-madua/internal/routine"
)

var (
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoAccess возвращается, если действие требует полного доступа к контенту.
	ErrNoAccess = errors.New("content requires subscription or purchase")
	// ErrNotStandalone возвращается при попытке купить курс, который не продаётся отдельно.
	ErrNotStandalone = errors.New("course is not sold individually")
	// ErrEmptyComment возвращается для пустого комментария.
	ErrEmptyComment = errors.New("comment body is empty")
	// ErrInvalidStatus возвращается для неизвестного статуса подписки.
	ErrInvalidStatus = errors.New("invalid subscription status")
	// ErrInvalidTimezone возвращается для неизвестного часового пояса.
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetViewer(ctx context.Context, userID int64) (model.Viewer, error)
	SetSubscriptionStatus(ctx context.Context, userID int64, status model.SubscriptionStatus) error
	SetUserTimezone(ctx context.Context, userID int64, tz string) error

	CreateCategory(ctx context.Context, name string) (int64, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreatePost(ctx context.Context, p model.Post) (int64, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	AddComment(ctx context.Context, postID, userID int64, body string) (*model.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)

	CreateCourse(ctx context.Context, c model.Course) (int64, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	CreateLesson(ctx context.Context, l model.Lesson) (int64, error)
	MarkLessonComplete(ctx context.Context, userID, courseID, lessonID int64) error
	GetCourseProgress(ctx context.Context, userID, courseID int64) (model.CourseProgress, error)
	RecordPurchase(ctx context.Context, userID, courseID int64) (bool, error)

	CreateTask(ctx context.Context, t model.RoutineTask) (int64, error)
	ListTasks(ctx context.Context, userID int64) ([]model.RoutineTask, error)
	GetTask(ctx context.Context, userID, taskID int64) (*model.RoutineTask, error)
	SetTaskCompletedAt(ctx context.Context, userID, taskID int64, completedAt *time.Time) error
}

// ViewerCache описывает кеш снимков посетителей. Get возвращает поколение
// снимка и при промахе; Set пишет под этим поколением, и запись, сделанная
// после Invalidate, не должна читаться.
type ViewerCache interface {
	Get(ctx context.Context, userID int64) (model.Viewer, int64, error)
	Set(ctx context.Context, v model.Viewer, gen int64) error
	Invalidate(ctx context.Context, userID int64) error
	Ping(ctx context.Context) error
}

// Service содержит бизнес-логику платформы.
type Service struct {
	repo      Repository
	cache     ViewerCache
	clock     routine.Clock
	evaluator *access.Evaluator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewService создаёт сервис. cache, clock, logger и m могут быть nil:
// без кеша посетитель читается из базы, без часов используется UTC.
func NewService(repo Repository, cache ViewerCache, clock routine.Clock, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = routine.NewSystemClock(time.UTC)
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		clock:     clock,
		evaluator: access.NewEvaluator(logger, m),
		metrics:   m,
		logger:    logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, login, hashed)
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

// IsAdmin сообщает, является ли пользователь администратором.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// Viewer возвращает права посетителя. Нулевой userID означает анонимного посетителя.
// Ошибки кеша не мешают ответу: права читаются из базы, а кеш не заполняется.
func (s *Service) Viewer(ctx context.Context, userID int64) (model.Viewer, error) {
	if userID == 0 {
		return model.AnonymousViewer(), nil
	}

	var (
		gen     int64
		canFill bool
	)
	if s.cache != nil {
		v, g, err := s.cache.Get(ctx, userID)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, cache.ErrMiss) {
			gen, canFill = g, true
		} else {
			s.logger.Warn("viewer cache read failed", zap.Error(err), zap.Int64("userID", userID))
		}
	}

	v, err := s.repo.GetViewer(ctx, userID)
	if err != nil {
		return model.Viewer{}, fmt.Errorf("load viewer: %w", err)
	}

	if canFill {
		if err := s.cache.Set(ctx, v, gen); err != nil {
			s.logger.Warn("viewer cache write failed", zap.Error(err), zap.Int64("userID", userID))
		}
	}

	return v, nil
}

func (s *Service) invalidateViewer(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("viewer cache invalidation failed", zap.Error(err), zap.Int64("userID", userID))
	}
}

// SetSubscriptionStatus меняет статус подписки пользователя.
func (s *Service) SetSubscriptionStatus(ctx context.Context, userID int64, status model.SubscriptionStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repo.SetSubscriptionStatus(ctx, userID, status); err != nil {
		return err
	}
	s.invalidateViewer(ctx, userID)
	s.logger.Info("subscription status changed", zap.Int64("userID", userID), zap.String("status", string(status)))
	return nil
}

// SetTimezone сохраняет часовой пояс пользователя, в котором считается «сегодня».
// Пустая строка возвращает пояс сервера.
func (s *Service) SetTimezone(ctx context.Context, userID int64, tz string) error {
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
		}
	}
	return s.repo.SetUserTimezone(ctx, userID, tz)
}

// Ping проверяет доступность базы и кеша.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("viewer cache: %w", err)
		}
	}
	return nil
}
