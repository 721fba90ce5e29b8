package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/username/coinledger/backend/src/database"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/model"
	"github.com/username/coinledger/backend/src/models"
	"github.com/username/coinledger/backend/src/security/validation"
	"github.com/username/coinledger/backend/src/services"
)

type MessageHandler struct {
	hub *services.EventHub
}

func NewMessageHandler(hub *services.EventHub) *MessageHandler {
	return &MessageHandler{hub: hub}
}

// HandleListMessages returns the shared activity feed, newest first.
func (h *MessageHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := model.ListMessages(database.DB, limit)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list messages", "error", err)
		sendJSONError(w, "Database error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, messages, http.StatusOK)
}

func (h *MessageHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	body := validation.SanitizeText(validation.StripUnprintable(strings.TrimSpace(req.Body)))
	if err := validation.ValidateStringNotEmpty(body, "Message"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(body, validation.MaxMessageLength, "Message"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	message := models.Message{UserID: userID, Body: body}
	if err := model.InsertMessage(database.DB, &message); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to insert message", "error", err)
		sendJSONError(w, "Failed to post message", http.StatusInternalServerError)
		return
	}

	if user, err := model.GetUserByID(database.DB, userID); err == nil {
		message.Username = user.Username
	}

	h.hub.Publish(services.Event{Type: "message.created", UserID: userID, ID: message.ID})
	sendJSON(w, message, http.StatusCreated)
}

func (h *MessageHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	messageID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteMessage(database.DB, userID, messageID); err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to delete message", "messageID", messageID, "error", err)
		sendJSONError(w, "Failed to delete message", http.StatusInternalServerError)
		return
	}

	h.hub.Publish(services.Event{Type: "message.deleted", UserID: userID, ID: messageID})
	w.WriteHeader(http.StatusNoContent)
}
