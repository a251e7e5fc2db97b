package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clube-madua/internal/service"
)

type taskResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Archetype    string  `json:"archetype"`
	Points       int     `json:"points"`
	Order        int     `json:"order"`
	BeforeRitual *string `json:"before_ritual,omitempty"`
	AfterRitual  *string `json:"after_ritual,omitempty"`
	State        string  `json:"state"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

type statsResponse struct {
	King    int `json:"king"`
	Warrior int `json:"warrior"`
	Mage    int `json:"mage"`
	Total   int `json:"total"`
}

type routineResponse struct {
	Date    string         `json:"date"`
	Tasks   []taskResponse `json:"tasks"`
	Stats   statsResponse  `json:"stats"`
	Balance string         `json:"balance"`
}

func newTaskResponse(v service.TaskView) taskResponse {
	resp := taskResponse{
		ID:           v.Task.ID,
		Title:        v.Task.Title,
		Archetype:    string(v.Task.Archetype),
		Points:       v.Task.Points,
		Order:        v.Task.Order,
		BeforeRitual: v.Task.BeforeRitual,
		AfterRitual:  v.Task.AfterRitual,
		State:        string(v.State),
	}
	if v.Task.CompletedAt != nil {
		ts := v.Task.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &ts
	}
	return resp
}

// GetRoutine возвращает распорядок текущего пользователя на сегодня.
func (h *Handler) GetRoutine(w http.ResponseWriter, r *http.Request) {
	userID := viewerID(r)

	view, err := h.service.GetRoutine(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "get routine error", zap.Int64("userID", userID))
		return
	}

	tasks := make([]taskResponse, 0, len(view.Tasks))
	for _, t := range view.Tasks {
		tasks = append(tasks, newTaskResponse(t))
	}

	writeJSON(w, http.StatusOK, routineResponse{
		Date:  view.Now.Format(time.DateOnly),
		Tasks: tasks,
		Stats: statsResponse{
			King:    view.Stats.King,
			Warrior: view.Stats.Warrior,
			Mage:    view.Stats.Mage,
			Total:   view.Stats.Total(),
		},
		Balance: string(view.Balance),
	})
}

// SealTask отмечает задачу выполненной сегодня.
func (h *Handler) SealTask(w http.ResponseWriter, r *http.Request) {
	h.changeTask(w, r, "seal task error", h.service.SealTask)
}

// UnsealTask снимает отметку о выполнении задачи.
func (h *Handler) UnsealTask(w http.ResponseWriter, r *http.Request) {
	h.changeTask(w, r, "unseal task error", h.service.UnsealTask)
}

func (h *Handler) changeTask(
	w http.ResponseWriter,
	r *http.Request,
	msg string,
	apply func(ctx context.Context, userID, taskID int64) (*service.TaskView, error),
) {
	userID := viewerID(r)
	taskID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := apply(r.Context(), userID, taskID)
	if err != nil {
		h.writeError(w, err, msg, zap.Int64("userID", userID), zap.Int64("taskID", taskID))
		return
	}

	writeJSON(w, http.StatusOK, newTaskResponse(*view))
}
