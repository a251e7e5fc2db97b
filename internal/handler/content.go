package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/access"
	"github.com/mmeshcher/clube-madua/internal/service"
)

type postResponse struct {
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Kind           string `json:"kind"`
	Access         string `json:"access"`
	Content        string `json:"content"`
	Preview        bool   `json:"preview"`
	PreviewPercent int    `json:"preview_percent,omitempty"`
	CTA            bool   `json:"cta"`
	CreatedAt      string `json:"created_at"`
}

// GetPost возвращает статью или рецепт с учётом прав посетителя.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	view, err := h.service.ViewPost(r.Context(), viewerID(r), slug)
	if err != nil {
		h.writeError(w, err, "view post error", zap.String("slug", slug))
		return
	}

	resp := postResponse{
		Slug:      view.Post.Slug,
		Title:     view.Post.Title,
		Kind:      string(view.Post.Kind),
		Access:    string(view.Verdict.Level),
		Content:   view.Body,
		Preview:   view.Verdict.Level == access.LevelPreview,
		CTA:       view.ShowCTA,
		CreatedAt: view.Post.CreatedAt.Format(time.RFC3339),
	}
	if resp.Preview {
		resp.PreviewPercent = view.Verdict.Percent
	}

	writeJSON(w, http.StatusOK, resp)
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetCategories возвращает рубрики каталога.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err, "list categories error")
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name})
	}

	writeJSON(w, http.StatusOK, resp)
}

type commentResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// GetComments возвращает комментарии к статье.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	comments, err := h.service.ListComments(r.Context(), slug)
	if err != nil {
		h.writeError(w, err, "list comments error", zap.String("slug", slug))
		return
	}

	if len(comments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, commentResponse{
			ID:        c.ID,
			Login:     c.Login,
			Body:      c.Body,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type commentRequest struct {
	Body string `json:"body"`
}

// PostComment добавляет комментарий текущего пользователя.
func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID := viewerID(r)
	slug := chi.URLParam(r, "slug")

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	c, err := h.service.AddComment(r.Context(), userID, slug, req.Body)
	if err != nil {
		h.writeError(w, err, "add comment error", zap.String("slug", slug), zap.Int64("userID", userID))
		return
	}

	writeJSON(w, http.StatusCreated, commentResponse{
		ID:        c.ID,
		Login:     c.Login,
		Body:      c.Body,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	})
}

type progressResponse struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

type courseResponse struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	IsStandalone bool              `json:"is_standalone"`
	PriceCents   *int64            `json:"price_cents,omitempty"`
	HasAccess    bool              `json:"has_access"`
	Reason       string            `json:"reason"`
	Progress     *progressResponse `json:"progress,omitempty"`
}

func newCourseResponse(v *service.CourseView) courseResponse {
	resp := courseResponse{
		ID:           v.Course.ID,
		Title:        v.Course.Title,
		Description:  v.Course.Description,
		IsStandalone: v.Course.IsStandalone,
		PriceCents:   v.Course.PriceCents,
		HasAccess:    v.Access.HasAccess,
		Reason:       string(v.Access.Reason),
	}
	if v.Progress != nil {
		resp.Progress = &progressResponse{
			Completed: v.Progress.Completed,
			Total:     v.Progress.Total,
			Percent:   int(v.Progress.Ratio() * 100),
		}
	}
	return resp
}

// GetCourse возвращает курс, решение о доступе и прогресс посетителя.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.ViewCourse(r.Context(), viewerID(r), courseID)
	if err != nil {
		h.writeError(w, err, "view course error", zap.Int64("courseID", courseID))
		return
	}

	writeJSON(w, http.StatusOK, newCourseResponse(view))
}

// CompleteLesson отмечает урок пройденным.
func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID := viewerID(r)
	courseID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	lessonID, ok := pathID(r, "lessonID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.CompleteLesson(r.Context(), userID, courseID, lessonID)
	if err != nil {
		h.writeError(w, err, "complete lesson error",
			zap.Int64("userID", userID), zap.Int64("courseID", courseID), zap.Int64("lessonID", lessonID))
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		Completed: p.Completed,
		Total:     p.Total,
		Percent:   int(p.Ratio() * 100),
	})
}
