package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/model"
	"github.com/mmeshcher/clube-madua/internal/repository"
)

// RequireAdmin пропускает только администраторов. Должен стоять после
// обязательной аутентификации.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := viewerID(r)

		isAdmin, err := h.service.IsAdmin(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			h.logger.Error("admin check error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if !isAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type idResponse struct {
	ID int64 `json:"id"`
}

type taskRequest struct {
	UserID       int64   `json:"user_id"`
	Title        string  `json:"title"`
	Archetype    string  `json:"archetype"`
	Points       int     `json:"points"`
	Order        int     `json:"order"`
	BeforeRitual *string `json:"before_ritual"`
	AfterRitual  *string `json:"after_ritual"`
}

// CreateTask создаёт задачу распорядка для пользователя.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateTask(r.Context(), model.RoutineTask{
		UserID:       req.UserID,
		Title:        req.Title,
		Archetype:    model.Archetype(strings.ToUpper(req.Archetype)),
		Points:       req.Points,
		Order:        req.Order,
		BeforeRitual: req.BeforeRitual,
		AfterRitual:  req.AfterRitual,
	})
	if err != nil {
		h.writeError(w, err, "create task error", zap.Int64("userID", req.UserID))
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type subscriptionRequest struct {
	Status string `json:"status"`
}

// SetSubscription меняет статус подписки пользователя.
func (h *Handler) SetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	status := model.SubscriptionStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.service.SetSubscriptionStatus(r.Context(), userID, status); err != nil {
		h.writeError(w, err, "set subscription error", zap.Int64("userID", userID))
		return
	}

	w.WriteHeader(http.StatusOK)
}

type purchaseResponse struct {
	AlreadyPurchased bool `json:"already_purchased"`
}

// RecordPurchase фиксирует отдельную покупку курса пользователем после
// подтверждения оплаты платёжной системой.
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	courseID, ok := pathID(r, "courseID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	already, err := h.service.PurchaseCourse(r.Context(), userID, courseID)
	if err != nil {
		h.writeError(w, err, "record purchase error", zap.Int64("userID", userID), zap.Int64("courseID", courseID))
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{AlreadyPurchased: already})
}

type categoryRequest struct {
	Name string `json:"name"`
}

// CreateCategory создаёт рубрику.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err, "create category error", zap.String("name", req.Name))
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type postRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	CategoryID  *int64 `json:"category_id"`
	IsPremium   bool   `json:"is_premium"`
	IsPublished bool   `json:"is_published"`
}

// CreatePost создаёт статью или рецепт.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	kind := model.ContentKind(strings.ToLower(req.Kind))
	if kind != "" && kind != model.ContentPost && kind != model.ContentRecipe {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	id, err := h.service.CreatePost(r.Context(), model.Post{
		Slug:        req.Slug,
		Title:       req.Title,
		Kind:        kind,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		IsPremium:   req.IsPremium,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		h.writeError(w, err, "create post error", zap.String("slug", req.Slug))
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type courseRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	IsPremium    bool   `json:"is_premium"`
	IsPublished  bool   `json:"is_published"`
	IsInClub     bool   `json:"is_in_club"`
	IsStandalone bool   `json:"is_standalone"`
	PriceCents   *int64 `json:"price_cents"`
}

// CreateCourse создаёт курс.
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateCourse(r.Context(), model.Course{
		Title:        req.Title,
		Description:  req.Description,
		IsPremium:    req.IsPremium,
		IsPublished:  req.IsPublished,
		IsInClub:     req.IsInClub,
		IsStandalone: req.IsStandalone,
		PriceCents:   req.PriceCents,
	})
	if err != nil {
		h.writeError(w, err, "create course error", zap.String("title", req.Title))
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type lessonRequest struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

// CreateLesson добавляет урок к курсу.
func (h *Handler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req lessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateLesson(r.Context(), model.Lesson{
		CourseID: courseID,
		Title:    req.Title,
		Order:    req.Order,
	})
	if err != nil {
		h.writeError(w, err, "create lesson error", zap.Int64("courseID", courseID))
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

type anomalyResponse struct {
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
	Problem  string `json:"problem"`
}

// GetAnomalies возвращает курсы с ошибками конфигурации.
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.service.AuditCatalog(r.Context())
	if err != nil {
		h.writeError(w, err, "catalog audit error")
		return
	}

	resp := make([]anomalyResponse, 0, len(anomalies))
	for _, a := range anomalies {
		resp = append(resp, anomalyResponse{CourseID: a.CourseID, Title: a.Title, Problem: a.Problem})
	}

	writeJSON(w, http.StatusOK, resp)
}
