package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/bloom"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testURL     = "https://example.com/very/long/path"
	testBaseURL = "http://localhost:8888"
)

var errMock = errors.New("mock error")

func newTestService(t *testing.T) *shortener.Service {
	t.Helper()

	filter, err := bloom.NewMemory(bloom.Params{Capacity: 1000, ErrorRate: 0.01})
	require.NoError(t, err)

	gen, err := shortener.NewCodeGenerator(8)
	require.NoError(t, err)

	return shortener.NewService(shortener.Dependencies{
		Store:        store.NewMemoryStore(),
		Cache:        store.NewMemoryCache(),
		Filter:       filter,
		GenerateCode: gen,
	}, shortener.DefaultConfig(), zap.NewNop())
}

func newTestHandler(t *testing.T) *handlers.URLHandler {
	t.Helper()

	return handlers.NewURLHandler(newTestService(t), testBaseURL, zap.NewNop())
}

// stubResolver fails every call with err.
type stubResolver struct {
	err error
}

func (s stubResolver) Create(context.Context, string, shortener.CreateOptions) (*shortener.Entry, error) {
	return nil, s.err
}

func (s stubResolver) Get(context.Context, shortener.Code) (string, error) {
	return "", s.err
}

func (s stubResolver) Update(context.Context, shortener.Code, string, shortener.UpdateOptions) (*shortener.Entry, error) {
	return nil, s.err
}

func (s stubResolver) Delete(context.Context, shortener.DeleteOptions) (*shortener.Entry, error) {
	return nil, s.err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()

	var se huma.StatusError
	require.ErrorAs(t, err, &se)

	return se.GetStatus()
}

func create(t *testing.T, h *handlers.URLHandler, url string) *handlers.CreateShortURLResponse {
	t.Helper()

	req := &handlers.CreateShortURLRequest{}
	req.Body.URL = url

	resp, err := h.CreateShortURL(context.Background(), req)
	require.NoError(t, err)

	return resp
}

func TestCreateShortURL(t *testing.T) {
	t.Run("creates short url successfully", func(t *testing.T) {
		handler := newTestHandler(t)

		resp := create(t, handler, "https://Example.com/very/long/path/")

		assert.NotEmpty(t, resp.Body.Code)
		assert.Equal(t, testURL, resp.Body.Address)
		assert.Equal(t, fmt.Sprintf("%s/%s", testBaseURL, resp.Body.Code), resp.Body.ShortURL)
		assert.Equal(t, resp.Body.ShortURL, resp.Location)
		assert.Nil(t, resp.Body.ExpiresAt)
	})

	t.Run("creates a new code for the same url", func(t *testing.T) {
		handler := newTestHandler(t)

		first := create(t, handler, testURL)
		second := create(t, handler, testURL)

		assert.NotEqual(t, first.Body.Code, second.Body.Code)
	})

	t.Run("uses custom code and ttl", func(t *testing.T) {
		handler := newTestHandler(t)

		req := &handlers.CreateShortURLRequest{}
		req.Body.URL = testURL
		req.Body.Code = "my-link"
		req.Body.TTLSeconds = 60

		resp, err := handler.CreateShortURL(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "my-link", resp.Body.Code)
		require.NotNil(t, resp.Body.ExpiresAt)
	})

	t.Run("clamps a ttl past the schema maximum", func(t *testing.T) {
		handler := newTestHandler(t)

		req := &handlers.CreateShortURLRequest{}
		req.Body.URL = testURL
		req.Body.TTLSeconds = 18446744074

		resp, err := handler.CreateShortURL(context.Background(), req)

		require.NoError(t, err)
		require.NotNil(t, resp.Body.ExpiresAt)
		assert.Equal(t, time.Duration(handlers.MaxTTLSeconds)*time.Second,
			resp.Body.ExpiresAt.Sub(resp.Body.CreatedAt))
	})

	t.Run("returns 409 for a taken code", func(t *testing.T) {
		handler := newTestHandler(t)

		req := &handlers.CreateShortURLRequest{}
		req.Body.URL = testURL
		req.Body.Code = "taken"

		_, err := handler.CreateShortURL(context.Background(), req)
		require.NoError(t, err)

		_, err = handler.CreateShortURL(context.Background(), req)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("returns 400 for invalid url", func(t *testing.T) {
		handler := newTestHandler(t)

		req := &handlers.CreateShortURLRequest{}
		req.Body.URL = "not a url"

		resp, err := handler.CreateShortURL(context.Background(), req)

		assert.Nil(t, resp)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestResolveURL(t *testing.T) {
	t.Run("resolves a code", func(t *testing.T) {
		handler := newTestHandler(t)
		created := create(t, handler, testURL)

		resp, err := handler.ResolveURL(context.Background(), &handlers.ResolveRequest{Code: created.Body.Code})

		require.NoError(t, err)
		assert.Equal(t, created.Body.Code, resp.Body.Code)
		assert.Equal(t, testURL, resp.Body.Address)
	})

	t.Run("returns 404 when code not found", func(t *testing.T) {
		handler := newTestHandler(t)

		resp, err := handler.ResolveURL(context.Background(), &handlers.ResolveRequest{Code: "notfound"})

		assert.Nil(t, resp)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestRedirectToURL(t *testing.T) {
	t.Run("redirects to original url", func(t *testing.T) {
		handler := newTestHandler(t)
		created := create(t, handler, testURL)

		resp, err := handler.RedirectToURL(context.Background(), &handlers.RedirectRequest{Code: created.Body.Code})

		require.NoError(t, err)
		assert.Equal(t, http.StatusMovedPermanently, resp.Status)
		assert.Equal(t, testURL, resp.Location)
	})

	t.Run("returns 404 when code not found", func(t *testing.T) {
		handler := newTestHandler(t)

		resp, err := handler.RedirectToURL(context.Background(), &handlers.RedirectRequest{Code: "notfound"})

		assert.Nil(t, resp)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestUpdateShortURL(t *testing.T) {
	t.Run("updates the address", func(t *testing.T) {
		handler := newTestHandler(t)
		created := create(t, handler, testURL)

		req := &handlers.UpdateShortURLRequest{Code: created.Body.Code}
		req.Body.URL = "https://example.com/new/"
		req.Body.TTLSeconds = 3600

		resp, err := handler.UpdateShortURL(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/new", resp.Body.Address)
		require.NotNil(t, resp.Body.ExpiresAt)

		resolved, err := handler.ResolveURL(context.Background(), &handlers.ResolveRequest{Code: created.Body.Code})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/new", resolved.Body.Address)
	})

	t.Run("returns 404 for unknown code", func(t *testing.T) {
		handler := newTestHandler(t)

		req := &handlers.UpdateShortURLRequest{Code: "missing"}
		req.Body.URL = testURL

		_, err := handler.UpdateShortURL(context.Background(), req)

		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestDeleteShortURL(t *testing.T) {
	t.Run("deletes by code", func(t *testing.T) {
		handler := newTestHandler(t)
		created := create(t, handler, testURL)

		resp, err := handler.DeleteShortURL(context.Background(), &handlers.DeleteShortURLRequest{Code: created.Body.Code})

		require.NoError(t, err)
		assert.True(t, resp.Body.Deleted)
		assert.Equal(t, created.Body.Code, resp.Body.Code)

		_, err = handler.ResolveURL(context.Background(), &handlers.ResolveRequest{Code: created.Body.Code})
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})

	t.Run("deletes by url", func(t *testing.T) {
		handler := newTestHandler(t)
		created := create(t, handler, testURL)

		resp, err := handler.DeleteShortURL(context.Background(), &handlers.DeleteShortURLRequest{URL: testURL + "/"})

		require.NoError(t, err)
		assert.Equal(t, created.Body.Code, resp.Body.Code)
	})

	t.Run("returns 400 without identifiers", func(t *testing.T) {
		handler := newTestHandler(t)

		_, err := handler.DeleteShortURL(context.Background(), &handlers.DeleteShortURLRequest{})

		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid address", shortener.ErrInvalidAddress, http.StatusBadRequest},
		{"bad request", shortener.ErrBadRequest, http.StatusBadRequest},
		{"not found", shortener.ErrNotFound, http.StatusNotFound},
		{"conflict", shortener.ErrConflict, http.StatusConflict},
		{"unavailable", fmt.Errorf("%w: find: %w", shortener.ErrUnavailable, errMock), http.StatusServiceUnavailable},
		{"unexpected", errMock, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewURLHandler(stubResolver{err: tt.err}, testBaseURL, zap.NewNop())

			_, err := handler.RedirectToURL(context.Background(), &handlers.RedirectRequest{Code: "abc123"})

			assert.Equal(t, tt.status, statusOf(t, err))
		})
	}
}
