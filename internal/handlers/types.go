package handlers

import "time"

// EntryBody describes a stored entry.
type EntryBody struct {
	Code      string     `doc:"The short code"                    example:"abc123"                             json:"code"`
	ShortURL  string     `doc:"The full short URL"                example:"http://localhost:8888/abc123"       json:"shortUrl"`
	Address   string     `doc:"The canonical target address"      example:"https://example.com/very/long/path" json:"address"`
	CreatedAt time.Time  `doc:"When the entry was created"        json:"createdAt"`
	ExpiresAt *time.Time `doc:"When the entry expires, if it does" json:"expiresAt,omitempty"`
}

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL        string `doc:"The URL to shorten"                       example:"https://example.com/very/long/path" json:"url"                  minLength:"1"`
		Code       string `doc:"A custom code to use instead of a random one" example:"my-link"                       json:"code,omitempty"       maxLength:"64" pattern:"^[A-Za-z0-9_-]+$"`
		TTLSeconds int64  `doc:"Seconds until the entry expires, at most ten years" example:"3600"                    json:"ttlSeconds,omitempty" maximum:"315360000" minimum:"1"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     EntryBody
}

// ResolveRequest identifies an entry by its code.
type ResolveRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// ResolveResponse is the resolved address of a code.
type ResolveResponse struct {
	Body struct {
		Code    string `doc:"The short code"               example:"abc123"                             json:"code"`
		Address string `doc:"The canonical target address" example:"https://example.com/very/long/path" json:"address"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse redirects to the resolved address.
type RedirectResponse struct {
	Status   int
	Location string `doc:"The target address" header:"Location"`
}

// UpdateShortURLRequest points an existing code at a new URL.
type UpdateShortURLRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
	Body struct {
		URL        string `doc:"The new target URL"                                  example:"https://example.com/new" json:"url"                  minLength:"1"`
		TTLSeconds int64  `doc:"Seconds until the entry expires, counted from now, at most ten years" example:"3600" json:"ttlSeconds,omitempty" maximum:"315360000" minimum:"1"`
	}
}

// UpdateShortURLResponse is the updated entry.
type UpdateShortURLResponse struct {
	Body EntryBody
}

// DeleteShortURLRequest identifies the entry to delete by code or by URL.
type DeleteShortURLRequest struct {
	Code string `doc:"The short code; takes precedence over url" example:"abc123"              query:"code"`
	URL  string `doc:"The target URL"                             example:"https://example.com" query:"url"`
}

// DeleteShortURLResponse confirms a deletion.
type DeleteShortURLResponse struct {
	Body struct {
		Deleted bool   `doc:"Whether an entry was deleted" json:"deleted"`
		Code    string `doc:"The deleted code"             example:"abc123" json:"code"`
	}
}
