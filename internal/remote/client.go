// Package remote talks to the gig-tracking backend. Every response is
// normalised through package payload before it leaves this package.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/cdtdelta/gigtrack/internal/logging"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/payload"
)

var (
	ErrNotFound     = errors.New("remote: not found")
	ErrUnauthorized = errors.New("remote: unauthorized")
)

// maxPages bounds pagination through /api/usergigs/.
const maxPages = 200

// genreEndpoints are tried in order; only a 404 moves on to the next.
var genreEndpoints = []string{
	"/api/genres?parents=true",
	"/api/genres/?parents=true",
	"/api/genres",
	"/api/genres/",
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

type Config struct {
	BaseURL       string
	Username      string
	Password      string
	Timeout       time.Duration
	RatePerSecond float64
	Retries       int
	// RetryWait is the initial backoff; zero means 200ms.
	RetryWait time.Duration
}

// Client is a rate-limited, retrying backend client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     logging.Logger
}

// New builds a Client. BaseURL must be an absolute http or https URL.
func New(cfg Config, log logging.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if log == nil {
		log = logging.Discard()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 200 * time.Millisecond
	}

	c := &Client{
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With("component", "remote"),
	}
	c.http = resty.New().
		SetBaseURL(u.String()).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetDisableWarn(true).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(10 * wait).
		AddRetryCondition(retryCondition).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return c.limiter.Wait(r.Context())
		})
	if cfg.Username != "" || cfg.Password != "" {
		c.http.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return c, nil
}

// retryCondition retries network failures, server errors and throttling.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// do sends a request and decodes a JSON response body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug("api request", "method", method, "path", path,
		"status", resp.StatusCode(), "elapsed", time.Since(start))

	if resp.IsError() {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// ArtistsSeen fetches every artist the user has seen.
func (c *Client) ArtistsSeen(ctx context.Context) ([]model.Artist, error) {
	var rows []payload.ArtistSeen
	if err := c.do(ctx, http.MethodGet, "/api/artists_seen/", nil, &rows); err != nil {
		return nil, err
	}
	return payload.Artists(rows), nil
}

// VenuesVisited fetches every venue the user has been to.
func (c *Client) VenuesVisited(ctx context.Context) ([]model.Venue, error) {
	var rows []payload.VenueVisited
	if err := c.do(ctx, http.MethodGet, "/api/venues_visited/", nil, &rows); err != nil {
		return nil, err
	}
	return payload.Venues(rows), nil
}

// UserGigs fetches the user's attended gigs, following pagination.
func (c *Client) UserGigs(ctx context.Context) ([]model.Gig, error) {
	var gigs []model.Gig
	next := "/api/usergigs/"
	for page := 0; next != "" && page < maxPages; page++ {
		var p payload.UserGigPage
		if err := c.do(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		gigs = append(gigs, payload.Gigs(p.Results)...)

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	return gigs, nil
}

// LatestGig returns the user's most recent gig, or ErrNotFound when there
// are none.
func (c *Client) LatestGig(ctx context.Context) (*model.Gig, error) {
	var p payload.UserGigPage
	if err := c.do(ctx, http.MethodGet, "/api/usergigs/?ordering=-gig__date&limit=1", nil, &p); err != nil {
		return nil, err
	}
	gigs := payload.Gigs(p.Results)
	if len(gigs) == 0 {
		return nil, ErrNotFound
	}
	return &gigs[0], nil
}

// UserStats fetches the backend's summary counters.
func (c *Client) UserStats(ctx context.Context) (*payload.UserStats, error) {
	var s payload.UserStats
	if err := c.do(ctx, http.MethodGet, "/api/userstats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SearchArtists returns artists whose name matches q.
func (c *Client) SearchArtists(ctx context.Context, q string) ([]model.Artist, error) {
	var refs []payload.ArtistRef
	path := "/api/artists/search?" + url.Values{"q": {q}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &refs); err != nil {
		return nil, err
	}
	artists := make([]model.Artist, 0, len(refs))
	for _, r := range refs {
		if a := r.Model(); a.Name != "" {
			artists = append(artists, a)
		}
	}
	return artists, nil
}

// GigSearch narrows a gig lookup. Location and Year are optional.
type GigSearch struct {
	ArtistID int64
	Location string
	Year     string
}

// GigResult is a gig search hit. Gig.RemoteID is the id to submit.
type GigResult struct {
	Gig             model.Gig
	AlreadyAttended bool
}

// SearchGigs finds gigs by an artist, optionally near a location or in a year.
func (c *Client) SearchGigs(ctx context.Context, s GigSearch) ([]GigResult, error) {
	v := url.Values{"artist_id": {strconv.FormatInt(s.ArtistID, 10)}}
	if s.Location != "" {
		v.Set("location", s.Location)
	}
	if s.Year != "" {
		v.Set("year", s.Year)
	}

	var rows []payload.Gig
	if err := c.do(ctx, http.MethodGet, "/api/gigs/search?"+v.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	results := make([]GigResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, GigResult{Gig: r.Model(), AlreadyAttended: bool(r.AlreadyAttended)})
	}
	return results, nil
}

// BulkAddResult reports the outcome of a bulk attendance submit.
type BulkAddResult struct {
	Created int
	Errors  []string
}

// BulkAdd records attendance for the given gig ids.
func (c *Client) BulkAdd(ctx context.Context, gigIDs []int64) (*BulkAddResult, error) {
	var resp payload.BulkAddResponse
	if err := c.do(ctx, http.MethodPost, "/api/gigs/bulk_add/", payload.BulkAddRequest{GigIDs: gigIDs}, &resp); err != nil {
		return nil, err
	}
	result := &BulkAddResult{Created: resp.Created.Or(0), Errors: resp.ErrorMessages()}
	if len(result.Errors) > 0 {
		c.log.Warn("bulk add reported errors", "count", len(result.Errors))
	}
	return result, nil
}

// Genres fetches the genre tree, trying each known endpoint layout.
func (c *Client) Genres(ctx context.Context) ([]payload.Genre, error) {
	var lastErr error
	for _, ep := range genreEndpoints {
		var genres []payload.Genre
		err := c.do(ctx, http.MethodGet, ep, nil, &genres)
		if err == nil {
			return genres, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotFound) {
			break
		}
	}
	return nil, fmt.Errorf("loading genres: %w", lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
