package routes

import (
	"net/http"
	"vetski/vetski/controllers"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func ConversationRoutes(ctrl *controllers.ConversationController, chat *controllers.ChatController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Group(func(gr chi.Router) {
		gr.Use(timeout())

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			userID, err := currentUser(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			list, err := ctrl.List(r.Context(), userID)
			if err != nil {
				return fail(err)
			}
			return list, http.StatusOK, nil
		}))

		gr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			userID, err := currentUser(r)
			if err != nil {
				return nil, http.StatusUnauthorized, err
			}
			var req types.CreateConversationRequest
			if err := decodeJSON(r, &req); err != nil {
				return fail(err)
			}
			conv, err := ctrl.Create(r.Context(), userID, req)
			if err != nil {
				return fail(err)
			}
			return conv, http.StatusCreated, nil
		}))

		gr.Get("/{id}/messages", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			msgs, err := ctrl.Messages(r.Context(), userID, id)
			if err != nil {
				return fail(err)
			}
			return msgs, http.StatusOK, nil
		}))

		gr.Delete("/{id}", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			if err := ctrl.Delete(r.Context(), userID, id); err != nil {
				return fail(err)
			}
			return nil, http.StatusNoContent, nil
		}))
	})

	// streaming, no request timeout
	r.Post("/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUser(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, statusFor(err), err)
			return
		}
		var req types.ChatTurnRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, statusFor(err), err)
			return
		}
		ch, err := chat.ConversationTurn(r.Context(), userID, id, req)
		streamOrError(w, r, ch, err)
	})

	return r
}
