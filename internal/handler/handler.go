// Package handler содержит HTTP-обработчики API платформы Клуб Мадуа.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/middleware"
	"github.com/mmeshcher/clube-madua/internal/model"
	"github.com/mmeshcher/clube-madua/internal/repository"
	"github.com/mmeshcher/clube-madua/internal/service"
	"github.com/mmeshcher/clube-madua/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	SetTimezone(ctx context.Context, userID int64, tz string) error
	Ping(ctx context.Context) error

	ViewPost(ctx context.Context, viewerID int64, slug string) (*service.PostView, error)
	ListComments(ctx context.Context, slug string) ([]model.Comment, error)
	AddComment(ctx context.Context, userID int64, slug, body string) (*model.Comment, error)
	CreatePost(ctx context.Context, p model.Post) (int64, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	ViewCourse(ctx context.Context, viewerID, courseID int64) (*service.CourseView, error)
	PurchaseCourse(ctx context.Context, userID, courseID int64) (bool, error)
	CompleteLesson(ctx context.Context, userID, courseID, lessonID int64) (model.CourseProgress, error)
	CreateCourse(ctx context.Context, c model.Course) (int64, error)
	CreateLesson(ctx context.Context, l model.Lesson) (int64, error)

	GetRoutine(ctx context.Context, userID int64) (*service.RoutineView, error)
	SealTask(ctx context.Context, userID, taskID int64) (*service.TaskView, error)
	UnsealTask(ctx context.Context, userID, taskID int64) (*service.TaskView, error)
	CreateTask(ctx context.Context, t model.RoutineTask) (int64, error)

	SetSubscriptionStatus(ctx context.Context, userID int64, status model.SubscriptionStatus) error
	AuditCatalog(ctx context.Context) ([]service.Anomaly, error)
}

// Handler реализует HTTP-обработчики API платформы.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type timezoneRequest struct {
	Timezone string `json:"timezone"`
}

// SetTimezone сохраняет часовой пояс текущего пользователя.
func (h *Handler) SetTimezone(w http.ResponseWriter, r *http.Request) {
	userID := viewerID(r)

	var req timezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetTimezone(r.Context(), userID, strings.TrimSpace(req.Timezone)); err != nil {
		h.writeError(w, err, "set timezone error", zap.Int64("userID", userID))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Ping сообщает, доступны ли база и кеш.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// viewerID возвращает идентификатор вошедшего пользователя или 0 для анонимного.
func viewerID(r *http.Request) int64 {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отображает ошибки сервиса в HTTP-статусы. Неизвестные ошибки
// пишутся в лог и возвращаются как 500.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoAccess):
		status = http.StatusPaymentRequired
	case errors.Is(err, service.ErrNotStandalone),
		errors.Is(err, repository.ErrSlugExists),
		errors.Is(err, repository.ErrCategoryExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEmptyComment),
		errors.Is(err, service.ErrInvalidStatus):
		status = http.StatusBadRequest
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
	}
	http.Error(w, http.StatusText(status), status)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		repository.ErrCategoryNotFound,
		service.ErrInvalidTimezone,
		validation.ErrEmptyTitle,
		validation.ErrInvalidArchetype,
		validation.ErrInvalidPoints,
		validation.ErrInvalidOrder,
		validation.ErrInvalidPrice,
		validation.ErrMissingPrice,
		validation.ErrInvalidSlug,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
