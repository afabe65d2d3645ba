package routes

import (
	"net/http"
	"vetski/vetski/controllers"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
)

func UserRoutes(ctrl *controllers.ProfileController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth, timeout())

	r.Get("/me", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		p, err := ctrl.GetMe(r.Context(), userID)
		if err != nil {
			return fail(err)
		}
		return p, http.StatusOK, nil
	}))

	r.Put("/me", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		var req types.UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			return fail(err)
		}
		p, err := ctrl.UpdateMe(r.Context(), userID, req)
		if err != nil {
			return fail(err)
		}
		return p, http.StatusOK, nil
	}))

	return r
}
