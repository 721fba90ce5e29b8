package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/username/coinledger/backend/src/database"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/model"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/processors"
	"github.com/username/coinledger/backend/src/security/validation"
	"github.com/username/coinledger/backend/src/services"
)

type GoalHandler struct {
	hub *services.EventHub
}

func NewGoalHandler(hub *services.EventHub) *GoalHandler {
	return &GoalHandler{hub: hub}
}

// HandleListGoals returns the user's goals with progress computed
// against the current ledger balance.
func (h *GoalHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	goals, err := model.ListGoals(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list goals", "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	entries, err := model.ListEntries(database.DB, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list entries for goal progress", "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}
	balance := processors.Balance(entries)

	progress := make([]models.GoalProgress, 0, len(goals))
	for _, g := range goals {
		p := models.GoalProgress{Goal: g, CurrentAmount: balance}
		if g.TargetAmount > 0 {
			p.Percent = balance / g.TargetAmount * 100
			if p.Percent < 0 {
				p.Percent = 0
			}
			if p.Percent > 100 {
				p.Percent = 100
			}
		}
		progress = append(progress, p)
	}

	sendJSON(w, progress, http.StatusOK)
}

type goalRequest struct {
	Title        string  `json:"title"`
	TargetAmount float64 `json:"target_amount"`
	Deadline     string  `json:"deadline"`
	Achieved     bool    `json:"achieved"`
}

func (req *goalRequest) validate() (models.Goal, error) {
	title := validation.SanitizeText(strings.TrimSpace(req.Title))
	if err := validation.ValidateStringNotEmpty(title, "Title"); err != nil {
		return models.Goal{}, err
	}
	if err := validation.ValidateStringMaxLength(title, validation.MaxGoalNameLength, "Title"); err != nil {
		return models.Goal{}, err
	}
	if err := validation.ValidatePositiveAmount(req.TargetAmount, "Target amount"); err != nil {
		return models.Goal{}, err
	}

	deadline := strings.TrimSpace(req.Deadline)
	if deadline != "" {
		if _, err := validation.ValidateDayString(deadline, "Deadline"); err != nil {
			return models.Goal{}, err
		}
	}

	return models.Goal{
		Title:        title,
		TargetAmount: req.TargetAmount,
		Deadline:     deadline,
		Achieved:     req.Achieved,
	}, nil
}

func (h *GoalHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	goal, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	goal.UserID = userID

	if err := model.InsertGoal(database.DB, &goal); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to insert goal", "error", err)
		sendJSONError(w, "Failed to create goal", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(services.Event{Type: "goal.created", UserID: userID, ID: goal.ID})
	sendJSON(w, goal, http.StatusCreated)
}

func (h *GoalHandler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	goalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	goal, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	goal.ID = goalID
	goal.UserID = userID

	if err := model.UpdateGoal(database.DB, &goal); err != nil {
		if errors.Is(err, model.ErrGoalNotFound) {
			sendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to update goal", "goalID", goalID, "error", err)
		sendJSONError(w, "Failed to update goal", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(services.Event{Type: "goal.updated", UserID: userID, ID: goalID})
	sendJSON(w, goal, http.StatusOK)
}

func (h *GoalHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	goalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteGoal(database.DB, userID, goalID); err != nil {
		if errors.Is(err, model.ErrGoalNotFound) {
			sendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete goal", "goalID", goalID, "error", err)
		sendJSONError(w, "Failed to delete goal", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(services.Event{Type: "goal.deleted", UserID: userID, ID: goalID})
	w.WriteHeader(http.StatusNoContent)
}
