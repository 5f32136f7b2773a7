// Package achievements derives summary counters and milestone progress
// from the gig history.
package achievements

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// Stats are the headline counters shown on the dashboard.
type Stats struct {
	Concerts       int          `json:"concerts_attended"`
	Artists        int          `json:"artists_seen"`
	Genres         int          `json:"genres_seen"`
	Venues         int          `json:"unique_venues"`
	Countries      int          `json:"countries"`
	Festivals      int          `json:"festivals"`
	MostSeenArtist *ArtistCount `json:"most_seen_artist"`
	FirstGig       *time.Time   `json:"first_gig"`
	LatestGig      *time.Time   `json:"latest_gig"`
}

// ArtistCount names an artist and how many gigs they appear on.
type ArtistCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Achievement is one milestone with capped progress towards its goal.
type Achievement struct {
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Goal     int    `json:"goal"`
	Earned   bool   `json:"earned"`
}

// Compute derives Stats from gigs. Artists, venues and countries are
// counted case-insensitively; a gig's lineup counts each artist once.
func Compute(gigs []model.Gig) Stats {
	s := Stats{Concerts: len(gigs)}

	counts := map[string]*ArtistCount{}
	var order []string
	genres := map[string]bool{}
	venues := map[string]bool{}
	countries := map[string]bool{}

	for _, g := range gigs {
		lineup := lo.Map(g.Artists, func(a string, _ int) string { return strings.TrimSpace(a) })
		for _, name := range lo.UniqBy(lineup, strings.ToLower) {
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			c, ok := counts[key]
			if !ok {
				c = &ArtistCount{Name: name}
				counts[key] = c
				order = append(order, key)
			}
			c.Count++
		}
		if g.Genre != nil && strings.TrimSpace(*g.Genre) != "" {
			genres[strings.ToLower(strings.TrimSpace(*g.Genre))] = true
		}
		if g.Venue.Name != "" {
			venues[strings.ToLower(g.Venue.Name+"|"+g.Venue.City)] = true
		}
		if g.Venue.Country != "" {
			countries[strings.ToLower(g.Venue.Country)] = true
		}
		if g.Festival {
			s.Festivals++
		}
		if g.Date != nil {
			if s.FirstGig == nil || g.Date.Before(*s.FirstGig) {
				s.FirstGig = g.Date
			}
			if s.LatestGig == nil || g.Date.After(*s.LatestGig) {
				s.LatestGig = g.Date
			}
		}
	}

	s.Artists = len(counts)
	s.Genres = len(genres)
	s.Venues = len(venues)
	s.Countries = len(countries)

	// First artist to reach the highest count wins ties.
	for _, key := range order {
		if c := counts[key]; s.MostSeenArtist == nil || c.Count > s.MostSeenArtist.Count {
			s.MostSeenArtist = c
		}
	}
	return s
}

// Evaluate lists the milestones in display order.
func Evaluate(s Stats) []Achievement {
	mostSeen := 0
	if s.MostSeenArtist != nil {
		mostSeen = s.MostSeenArtist.Count
	}
	return []Achievement{
		milestone("First gig logged", s.Concerts, 1),
		milestone("Gigs in multiple countries", s.Countries, 2),
		milestone("Multiple gigs for the same artist", mostSeen, 2),
		milestone("Festival attendance", s.Festivals, 1),
		milestone("10 gigs logged", s.Concerts, 10),
	}
}

func milestone(name string, progress, goal int) Achievement {
	return Achievement{
		Name:     name,
		Progress: min(progress, goal),
		Goal:     goal,
		Earned:   progress >= goal,
	}
}
