package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/gigtrack/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:   srv.URL,
		Username:  "gig",
		Password:  "goer",
		Timeout:   5 * time.Second,
		Retries:   2,
		RetryWait: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "gigs.example.com", "ftp://gigs.example.com", "http://"} {
		_, err := New(Config{BaseURL: u}, nil)
		assert.Error(t, err, u)
	}
}

func TestArtistsSeenSendsBasicAuthAndNormalises(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "gig" || pass != "goer" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/artists_seen/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `[{"id": 3, "name": "Lane 8", "times_seen": 2, "last_seen": "2024-02-10", "favourited": "y"},
			{"id": 4, "name": "", "times_seen": 1}]`)
	}))

	artists, err := c.ArtistsSeen(context.Background())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "Lane 8", artists[0].Name)
	assert.True(t, artists[0].Favourite)
	assert.Equal(t, "2024-02-10", model.FormatDate(artists[0].LastSeen))
}

func TestVenuesVisited(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/venues_visited/", r.URL.Path)
		fmt.Fprint(w, `[{"id": 5, "name": "Drumsheds", "city": "London", "country": "UK", "times_visited": 2}]`)
	}))

	venues, err := c.VenuesVisited(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Drumsheds", venues[0].Name)
	assert.Equal(t, int64(5), venues[0].RemoteID)
	assert.Equal(t, 2, venues[0].TimesVisited)
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.UserStats(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserGigsFollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/usergigs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, map[string]any{"next": nil, "results": []any{
				map[string]any{"id": 2, "gig": map[string]any{"id": 20, "title": "Second", "date": "2021-01-01"}},
			}})
			return
		}
		next := srvURL + "/api/usergigs/?page=2"
		writeJSON(w, map[string]any{"next": next, "results": []any{
			map[string]any{"id": 1, "rating": 4, "gig": map[string]any{"id": 10, "title": "First", "rating": 2}},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	gigs, err := c.UserGigs(context.Background())
	require.NoError(t, err)
	require.Len(t, gigs, 2)
	assert.Equal(t, "First", gigs[0].Title)
	require.NotNil(t, gigs[0].Rating)
	assert.Equal(t, 4, *gigs[0].Rating)
	assert.Equal(t, int64(20), gigs[1].RemoteID)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"concerts_attended": "12", "most_seen_artist": map[string]any{"name": "Lane 8", "count": 5}})
	}))

	stats, err := c.UserStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 12, stats.ConcertsAttended.Or(0))
	assert.Equal(t, "Lane 8", stats.MostSeenArtist.Name)
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ArtistsSeen(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	_, err := c.UserStats(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchArtistsEncodesQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/artists/search", r.URL.Path)
		assert.Equal(t, "above & beyond", r.URL.Query().Get("q"))
		writeJSON(w, []map[string]any{{"id": 1, "name": "Above & Beyond", "genre": "Trance"}})
	}))

	artists, err := c.SearchArtists(context.Background(), "above & beyond")
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, int64(1), artists[0].RemoteID)
}

func TestSearchGigs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "9", q.Get("artist_id"))
		assert.Equal(t, "London, UK", q.Get("location"))
		assert.Empty(t, q.Get("year"))
		writeJSON(w, []map[string]any{
			{"id": 100, "title": "Brixton", "date": "2024-03-09", "already_attended": true},
			{"id": 101, "title": "Ally Pally", "date": "2024-10-10"},
		})
	}))

	results, err := c.SearchGigs(context.Background(), GigSearch{ArtistID: 9, Location: "London, UK"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].AlreadyAttended)
	assert.False(t, results[1].AlreadyAttended)
	assert.Equal(t, int64(101), results[1].Gig.RemoteID)
}

func TestBulkAdd(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/gigs/bulk_add/", r.URL.Path)
		var body struct {
			GigIDs []int64 `json:"gig_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{4, 7}, body.GigIDs)
		writeJSON(w, map[string]any{"created": 1, "errors": []string{"gig 7 already added"}})
	}))

	res, err := c.BulkAdd(context.Background(), []int64{4, 7})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{"gig 7 already added"}, res.Errors)
}

func TestGenresFallsBackOnNotFound(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		if r.URL.RequestURI() != "/api/genres" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []map[string]any{{"id": 1, "name": "Electronic", "subgenres": []any{}}})
	}))

	genres, err := c.Genres(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 1)
	assert.Equal(t, "Electronic", genres[0].Name)
	assert.Equal(t, []string{"/api/genres?parents=true", "/api/genres/?parents=true", "/api/genres"}, paths)
}

func TestGenresStopsOnOtherErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := c.Genres(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLatestGig(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-gig__date", r.URL.Query().Get("ordering"))
		writeJSON(w, map[string]any{"results": []any{}})
	}))
	_, err := c.LatestGig(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}
