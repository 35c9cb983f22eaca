package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/lootmap/internal/commands"
)

type CommandRequest struct {
	Text string `json:"text"`
}

type CommandResponse struct {
	Reply string `json:"reply"`
}

// CommandHandler runs chat commands posted by the Discord responder
type CommandHandler struct {
	dispatcher *commands.Dispatcher
	logger     *slog.Logger
}

func NewCommandHandler(dispatcher *commands.Dispatcher, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher, logger: logger}
}

// ServeHTTP handles POST /v1/commands
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !commands.IsCommand(req.Text) {
		writeError(w, h.logger, http.StatusBadRequest, "text must start with "+commands.Prefix)
		return
	}

	reply, err := h.dispatcher.Handle(r.Context(), req.Text)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CommandResponse{Reply: reply})
}
