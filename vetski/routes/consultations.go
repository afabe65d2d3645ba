package routes

import (
	"net/http"
	"vetski/vetski/controllers"
	"vetski/vetski/services/realtime"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/types"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func ConsultationRoutes(ctrl *controllers.ConsultationController, chat *controllers.ChatController, hub *realtime.Hub, wsOpts *websocket.AcceptOptions, auth Middleware) chi.Router {
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
			var req types.CreateConsultationRequest
			if err := decodeJSON(r, &req); err != nil {
				return fail(err)
			}
			c, err := ctrl.Create(r.Context(), userID, req)
			if err != nil {
				return fail(err)
			}
			return c, http.StatusCreated, nil
		}))

		gr.Get("/{id}", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			c, err := ctrl.Get(r.Context(), userID, id)
			if err != nil {
				return fail(err)
			}
			return c, http.StatusOK, nil
		}))

		gr.Post("/{id}/consent", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			c, err := ctrl.Consent(r.Context(), userID, id)
			if err != nil {
				return fail(err)
			}
			return c, http.StatusOK, nil
		}))

		gr.Get("/{id}/transcript", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			t, err := ctrl.Transcript(r.Context(), userID, id)
			if err != nil {
				return fail(err)
			}
			return t, http.StatusOK, nil
		}))

		gr.Post("/{id}/transcript/sync", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
			res, err := ctrl.Sync(r.Context(), userID, id)
			if err != nil {
				return fail(err)
			}
			return res, http.StatusOK, nil
		}))
	})

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
		ch, err := chat.ConsultationTurn(r.Context(), userID, id, req)
		streamOrError(w, r, ch, err)
	})

	r.Get("/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
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
		if _, err := ctrl.Get(r.Context(), userID, id); err != nil {
			writeError(w, r, statusFor(err), err)
			return
		}
		conn, err := websocket.Accept(w, r, wsOpts)
		if err != nil {
			logging.ErrorLogger.Warn("websocket accept failed", zap.Error(err))
			return
		}
		hub.Serve(r.Context(), conn, id.String())
	})

	return r
}
