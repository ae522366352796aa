package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Resolver is the resolution service as seen by the HTTP layer.
type Resolver interface {
	Create(ctx context.Context, address string, opts shortener.CreateOptions) (*shortener.Entry, error)
	Get(ctx context.Context, code shortener.Code) (string, error)
	Update(ctx context.Context, code shortener.Code, address string, opts shortener.UpdateOptions) (*shortener.Entry, error)
	Delete(ctx context.Context, opts shortener.DeleteOptions) (*shortener.Entry, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	resolver Resolver
	baseURL  string
	logger   *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(resolver Resolver, baseURL string, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		resolver: resolver,
		baseURL:  baseURL,
		logger:   logger,
	}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	entry, err := h.resolver.Create(ctx, req.Body.URL, shortener.CreateOptions{
		Code: shortener.Code(req.Body.Code),
		TTL:  seconds(req.Body.TTLSeconds),
	})
	if err != nil {
		return nil, h.problem("create", err)
	}

	resp := &CreateShortURLResponse{}
	resp.Body = h.entryBody(entry)
	resp.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *URLHandler) ResolveURL(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	address, err := h.resolver.Get(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.problem("resolve", err)
	}

	resp := &ResolveResponse{}
	resp.Body.Code = req.Code
	resp.Body.Address = address

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	address, err := h.resolver.Get(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.problem("redirect", err)
	}

	return &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: address,
	}, nil
}

func (h *URLHandler) UpdateShortURL(ctx context.Context, req *UpdateShortURLRequest) (*UpdateShortURLResponse, error) {
	entry, err := h.resolver.Update(ctx, shortener.Code(req.Code), req.Body.URL, shortener.UpdateOptions{
		TTL: seconds(req.Body.TTLSeconds),
	})
	if err != nil {
		return nil, h.problem("update", err)
	}

	return &UpdateShortURLResponse{Body: h.entryBody(entry)}, nil
}

func (h *URLHandler) DeleteShortURL(ctx context.Context, req *DeleteShortURLRequest) (*DeleteShortURLResponse, error) {
	entry, err := h.resolver.Delete(ctx, shortener.DeleteOptions{
		Code:    shortener.Code(req.Code),
		Address: req.URL,
	})
	if err != nil {
		return nil, h.problem("delete", err)
	}

	resp := &DeleteShortURLResponse{}
	resp.Body.Deleted = true
	resp.Body.Code = string(entry.Code)

	return resp, nil
}

func (h *URLHandler) entryBody(entry *shortener.Entry) EntryBody {
	return EntryBody{
		Code:      string(entry.Code),
		ShortURL:  fmt.Sprintf("%s/%s", h.baseURL, entry.Code),
		Address:   entry.Address,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	}
}

// problem maps service errors to HTTP errors.
func (h *URLHandler) problem(op string, err error) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidAddress), errors.Is(err, shortener.ErrBadRequest):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	case errors.Is(err, shortener.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, shortener.ErrUnavailable):
		h.logger.Error("store unavailable", zap.String("op", op), zap.Error(err))

		return huma.Error503ServiceUnavailable("store unavailable, try again later")
	default:
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))

		return huma.Error500InternalServerError("failed to " + op + " url")
	}
}

// MaxTTLSeconds matches the maximum accepted by the request schemas.
const MaxTTLSeconds = 10 * 365 * 24 * 60 * 60

// seconds converts a validated ttl. Values past MaxTTLSeconds are clamped so the
// conversion cannot overflow.
func seconds(n int64) time.Duration {
	n = min(n, MaxTTLSeconds)

	return time.Duration(n) * time.Second
}
