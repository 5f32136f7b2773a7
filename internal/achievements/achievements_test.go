package achievements

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cdtdelta/gigtrack/internal/model"
)

func gig(date, country string, festival bool, artists ...string) model.Gig {
	return model.Gig{
		Date:     model.ParseDate(date),
		Venue:    model.Venue{Name: "Venue " + country, City: "City", Country: country},
		Festival: festival,
		Artists:  artists,
		Genre:    model.StringPtr("Trance"),
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	if diff := cmp.Diff(Stats{}, s); diff != "" {
		t.Errorf("empty stats mismatch (-want +got):\n%s", diff)
	}

	for _, a := range Evaluate(s) {
		if a.Earned || a.Progress != 0 {
			t.Errorf("%s should be locked at 0, got %+v", a.Name, a)
		}
	}
}

func TestCompute(t *testing.T) {
	gigs := []model.Gig{
		gig("2022-05-01", "UK", false, "Lane 8", "Yotto"),
		gig("2024-02-10", "uk", false, "lane 8", "Lane 8"),
		gig("2019-08-20", "Netherlands", true, "Yotto", "Ben Böhmer"),
		gig("", "", false, "Lane 8"),
	}

	s := Compute(gigs)
	want := Stats{
		Concerts:       4,
		Artists:        3,
		Genres:         1,
		Venues:         3,
		Countries:      2,
		Festivals:      1,
		MostSeenArtist: &ArtistCount{Name: "Lane 8", Count: 3},
		FirstGig:       model.ParseDate("2019-08-20"),
		LatestGig:      model.ParseDate("2024-02-10"),
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateCapsProgress(t *testing.T) {
	s := Stats{Concerts: 4, Countries: 1, Festivals: 3, MostSeenArtist: &ArtistCount{Name: "X", Count: 2}}
	got := Evaluate(s)
	want := []Achievement{
		{Name: "First gig logged", Progress: 1, Goal: 1, Earned: true},
		{Name: "Gigs in multiple countries", Progress: 1, Goal: 2},
		{Name: "Multiple gigs for the same artist", Progress: 2, Goal: 2, Earned: true},
		{Name: "Festival attendance", Progress: 1, Goal: 1, Earned: true},
		{Name: "10 gigs logged", Progress: 4, Goal: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("achievements mismatch (-want +got):\n%s", diff)
	}
}
