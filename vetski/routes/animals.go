package routes

import (
	"net/http"
	"vetski/vetski/controllers"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func AnimalRoutes(ctrl *controllers.AnimalController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth, timeout())

	r.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		animals, err := ctrl.List(r.Context(), userID)
		if err != nil {
			return fail(err)
		}
		return animals, http.StatusOK, nil
	}))

	r.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		var req types.CreateAnimalRequest
		if err := decodeJSON(r, &req); err != nil {
			return fail(err)
		}
		a, err := ctrl.Create(r.Context(), userID, req)
		if err != nil {
			return fail(err)
		}
		return a, http.StatusCreated, nil
	}))

	r.Get("/{id}", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
		a, err := ctrl.Get(r.Context(), userID, id)
		if err != nil {
			return fail(err)
		}
		return a, http.StatusOK, nil
	}))

	r.Put("/{id}", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
		var req types.UpdateAnimalRequest
		if err := decodeJSON(r, &req); err != nil {
			return fail(err)
		}
		a, err := ctrl.Update(r.Context(), userID, id, req)
		if err != nil {
			return fail(err)
		}
		return a, http.StatusOK, nil
	}))

	r.Delete("/{id}", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
		if err := ctrl.Delete(r.Context(), userID, id); err != nil {
			return fail(err)
		}
		return nil, http.StatusNoContent, nil
	}))

	r.Get("/{id}/insights", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
		res, err := ctrl.Insights(r.Context(), userID, id)
		if err != nil {
			return fail(err)
		}
		return res, http.StatusOK, nil
	}))

	r.Post("/{id}/insights/refresh", withUserAndID(func(r *http.Request, userID, id uuid.UUID) (any, int, error) {
		res, err := ctrl.RefreshInsights(r.Context(), userID, id)
		if err != nil {
			return fail(err)
		}
		return res, http.StatusOK, nil
	}))

	return r
}
