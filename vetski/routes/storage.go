package routes

import (
	"net/http"
	"vetski/vetski/controllers"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
)

func StorageRoutes(ctrl *controllers.StorageController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth, timeout())

	r.Post("/signed-upload", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		var req types.SignedURLRequest
		if err := decodeJSON(r, &req); err != nil {
			return fail(err)
		}
		res, err := ctrl.SignedUpload(r.Context(), userID, req)
		if err != nil {
			return fail(err)
		}
		return res, http.StatusOK, nil
	}))

	r.Post("/signed-download", handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		var req types.SignedURLRequest
		if err := decodeJSON(r, &req); err != nil {
			return fail(err)
		}
		res, err := ctrl.SignedDownload(r.Context(), userID, req)
		if err != nil {
			return fail(err)
		}
		return res, http.StatusOK, nil
	}))

	return r
}
