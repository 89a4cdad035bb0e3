// Package chat contains the HTTP handler for the conversational
// surface: POST /chat hands the user's query and running transcript to
// the LLM bridge and returns the model's answer plus the updated
// transcript.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/people-api/internal/types"
	"github.com/aanand-mishra/people-api/internal/utils/response"
)

// Turner runs one chat turn. Satisfied by *llm.Bridge in production and
// by scripted fakes in tests.
type Turner interface {
	ChatTurn(ctx context.Context, userQuery string, history []types.ChatMessage) (types.ChatResponse, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /chat
//
// Request body (JSON):
//
//	{ "user_query": "who is person 1?", "chat_history": [ {role, content}... ] }
//
// Success response (200 OK):
//
//	{ "llm_response": "...", "chat_history": [ ...previous, user, assistant ] }
//
// Error responses:
//   - 400 — empty or undecodable body
//   - 422 — user_query missing
//   - 500 — any bridge/model/tool failure, deliberately collapsed into
//     the one generic message "an error occurred" (the chat caller is
//     an end user, not a debugger; detail goes to the server log)
//
// ─────────────────────────────────────────────────────────────────────────────
func New(bridge Turner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusUnprocessableEntity,
				response.ValidationError(validateErrs))
			return
		}

		slog.Info("chat turn", slog.Int("history_len", len(req.ChatHistory)))

		resp, err := bridge.ChatTurn(r.Context(), req.UserQuery, req.ChatHistory)
		if err != nil {
			slog.Error("chat turn failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(errors.New("an error occurred")))
			return
		}

		response.WriteJSON(w, http.StatusOK, resp)
	}
}
