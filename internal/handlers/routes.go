package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers all URL shortener routes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/urls",
		Summary:       "Create short URL",
		Description:   "Canonicalizes the URL and stores it under a new or caller-chosen code.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "resolve-short-url",
		Method:      http.MethodGet,
		Path:        "/urls/{code}",
		Summary:     "Resolve short URL",
		Description: "Returns the address the code resolves to.",
		Tags:        []string{"URLs"},
	}, urlHandler.ResolveURL)

	huma.Register(api, huma.Operation{
		OperationID: "update-short-url",
		Method:      http.MethodPut,
		Path:        "/urls/{code}",
		Summary:     "Update short URL",
		Description: "Points an existing code at a new URL, optionally resetting its expiry.",
		Tags:        []string{"URLs"},
	}, urlHandler.UpdateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "delete-short-url",
		Method:      http.MethodDelete,
		Path:        "/urls",
		Summary:     "Delete short URL",
		Description: "Deletes the entry with the given code, or else the oldest entry for the given URL.",
		Tags:        []string{"URLs"},
	}, urlHandler.DeleteShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the address associated with the short code.",
		Tags:        []string{"URLs"},
	}, urlHandler.RedirectToURL)
}
