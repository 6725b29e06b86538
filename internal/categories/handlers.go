package categories

import (
	"log/slog"
	"net/http"

	"priority-todo-backend/internal/httpx"
)

// ListCategoriesHandler handles GET /categories. It is public.
func ListCategoriesHandler(store *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context())
		if err != nil {
			httpx.Error(w, r, logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"categories": list})
	}
}

// CreateCategoryHandler handles POST /categories. Mount it behind the auth
// middleware.
func CreateCategoryHandler(store *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body NewCategory
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			httpx.Error(w, r, logger, err)
			return
		}

		c, err := store.Create(r.Context(), body)
		if err != nil {
			httpx.Error(w, r, logger, err)
			return
		}

		logger.Info("category created", "category_id", c.ID, "name", c.Name)
		httpx.JSON(w, http.StatusCreated, map[string]any{"category": c})
	}
}
