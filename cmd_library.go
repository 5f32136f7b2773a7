package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cdtdelta/gigtrack/internal/achievements"
	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// -- Library commands --

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import gig history from a CSV or JSONL file",
	Long: `Reads a CSV export (artist, date, venue, city, ... columns) or a JSONL
dump of API records and adds every gig not already in the library.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := app.Import(args[0], func(phase string, count, total int) {
			switch phase {
			case "reading":
				logger.Debug("reading", "count", count)
			case "inserting":
				logger.Debug("inserting", "count", count, "total", total)
			}
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Read %s records from %s (%s skipped)\n",
			humanize.Comma(int64(summary.Read)), summary.Path, humanize.Comma(int64(summary.Excluded)))
		fmt.Fprintf(out, "Added %s new gigs", humanize.Comma(int64(summary.Created)))
		if summary.Artists > 0 {
			fmt.Fprintf(out, " and %s artists", humanize.Comma(int64(summary.Artists)))
		}
		fmt.Fprintln(out)
		return nil
	},
}

var (
	exportView  string
	exportFlags listFlags
	exportScope scopeFlags
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export gig history or a curated view",
	Long: `Without --view, writes the gigs in import format (CSV or JSONL by
extension), oldest first. With --view artists|gigs|timeline|venues, writes
that curated list as CSV using the list flags. The scope flags (--year,
--city, --from, --to, ...) narrow the gigs in both modes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := exportScope.scope()
		if err != nil {
			return err
		}
		var n int
		if exportView == "" {
			n, err = app.ExportGigs(args[0], scope)
		} else {
			var q query.Query
			if q, err = exportFlags.query(); err != nil {
				return err
			}
			n, err = app.ExportView(args[0], exportView, q, scope)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s rows to %s\n", humanize.Comma(int64(n)), args[0])
		return nil
	},
}

var artistsFlags listFlags

var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "List the artists you have seen",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := artistsFlags.query()
		if err != nil {
			return err
		}
		res, err := app.Artists(q)
		if err != nil {
			return err
		}
		if artistsFlags.json {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printArtists(cmd.OutOrStdout(), res.Items)
	},
}

var (
	gigsFlags listFlags
	gigsScope scopeFlags
)

var gigsCmd = &cobra.Command{
	Use:   "gigs",
	Short: "List attended gigs, filtered by genre and place",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := gigsFlags.query()
		if err != nil {
			return err
		}
		scope, err := gigsScope.scope()
		if err != nil {
			return err
		}
		res, err := app.Gigs(q, scope)
		if err != nil {
			return err
		}
		if gigsFlags.json {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printGigs(cmd.OutOrStdout(), res.Items)
	},
}

var (
	timelineFlags listFlags
	timelineScope scopeFlags
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show attended gigs grouped by year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := timelineFlags.query()
		if err != nil {
			return err
		}
		scope, err := timelineScope.scope()
		if err != nil {
			return err
		}
		res, err := app.Timeline(q, scope)
		if err != nil {
			return err
		}
		if timelineFlags.json {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		for i, g := range res.Groups {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s (%d) ==\n", g.Key, len(g.Items))
			if err := printGigs(out, g.Items); err != nil {
				return err
			}
		}
		return nil
	},
}

var genresRemote bool

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List the genre chips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			genres []string
			err    error
		)
		if genresRemote {
			genres, err = app.RemoteGenres(cmd.Context())
		} else {
			genres, err = app.Genres()
		}
		if err != nil {
			return err
		}
		for _, g := range genres {
			fmt.Fprintln(cmd.OutOrStdout(), g)
		}
		return nil
	},
}

var (
	statsJSON   bool
	statsRemote bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show headline counters and the gigs-per-year histogram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsRemote {
			return printRemoteStats(cmd)
		}
		stats, err := app.Stats()
		if err != nil {
			return err
		}
		years, err := app.YearHistogram()
		if err != nil {
			return err
		}
		highlights, err := app.Highlights()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if statsJSON {
			return printJSON(out, map[string]any{"stats": stats, "years": years, "highlights": highlights})
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Concerts\t%s\n", humanize.Comma(int64(stats.Concerts)))
		fmt.Fprintf(w, "Artists\t%s\n", humanize.Comma(int64(stats.Artists)))
		fmt.Fprintf(w, "Genres\t%d\n", stats.Genres)
		fmt.Fprintf(w, "Venues\t%d\n", stats.Venues)
		fmt.Fprintf(w, "Countries\t%d\n", stats.Countries)
		fmt.Fprintf(w, "Festivals\t%d\n", stats.Festivals)
		if stats.MostSeenArtist != nil {
			fmt.Fprintf(w, "Most seen\t%s (%d)\n", stats.MostSeenArtist.Name, stats.MostSeenArtist.Count)
		}
		if stats.FirstGig != nil {
			fmt.Fprintf(w, "First gig\t%s (%s)\n", model.FormatDate(stats.FirstGig), humanize.Time(*stats.FirstGig))
		}
		if stats.LatestGig != nil {
			fmt.Fprintf(w, "Latest gig\t%s (%s)\n", model.FormatDate(stats.LatestGig), humanize.Time(*stats.LatestGig))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(years) > 0 {
			fmt.Fprintln(out, "\nGigs per year")
			for _, y := range years {
				fmt.Fprintf(out, "  %s  %s %d\n", y.Year, strings.Repeat("█", int(min(y.Count, 60))), y.Count)
			}
		}
		if len(highlights.MostSeen) > 0 {
			names := make([]string, len(highlights.MostSeen))
			for i, a := range highlights.MostSeen {
				names[i] = fmt.Sprintf("%s (%d)", a.Name, a.TimesSeen)
			}
			fmt.Fprintf(out, "\nMost seen: %s\n", strings.Join(names, ", "))
		}
		return nil
	},
}

func printRemoteStats(cmd *cobra.Command) error {
	rs, err := app.RemoteStats(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, rs)
	}
	s := rs.Stats
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Concerts\t%s\n", humanize.Comma(int64(s.ConcertsAttended.Or(0))))
	fmt.Fprintf(w, "Artists\t%s\n", humanize.Comma(int64(s.ArtistsSeen.Or(0))))
	fmt.Fprintf(w, "Genres\t%d\n", s.GenresSeen.Or(0))
	fmt.Fprintf(w, "Venues\t%d\n", s.UniqueVenues.Or(0))
	fmt.Fprintf(w, "Memories\t%d\n", s.MemoriesCount.Or(0))
	if s.MostSeenArtist != nil {
		fmt.Fprintf(w, "Most seen\t%s (%d)\n", s.MostSeenArtist.Name, s.MostSeenArtist.Count.Or(0))
	}
	if g := rs.LatestGig; g != nil {
		fmt.Fprintf(w, "Latest gig\t%s %s\n", g.DisplayName(), model.FormatDate(g.Date))
	}
	return w.Flush()
}

var achievementsJSON bool

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Show progress on gig milestones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := app.Achievements()
		if err != nil {
			return err
		}
		if achievementsJSON {
			return printJSON(cmd.OutOrStdout(), list)
		}
		return printAchievements(cmd.OutOrStdout(), list)
	},
}

var favouriteCmd = &cobra.Command{
	Use:   "favourite [artist-id]",
	Short: "Toggle an artist's favourite flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid artist id %q", args[0])
		}
		fav, err := app.ToggleFavourite(id)
		if err != nil {
			return err
		}
		state := "removed from"
		if fav {
			state = "added to"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Artist %d %s favourites\n", id, state)
		return nil
	},
}

var artistJSON bool

var artistCmd = &cobra.Command{
	Use:   "artist [artist-id]",
	Short: "Show an artist and every gig you saw them at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid artist id %q", args[0])
		}
		detail, err := app.Artist(id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if artistJSON {
			return printJSON(out, detail)
		}
		a := detail.Artist
		name := a.Name
		if a.Favourite {
			name += " ♥"
		}
		fmt.Fprintln(out, name)
		if g := model.Deref(a.Genre); g != "" {
			fmt.Fprintln(out, g)
		}
		fmt.Fprintf(out, "Seen %d times\n", a.TimesSeen)
		for _, g := range detail.Gigs {
			year := "undated"
			if g.Date != nil {
				year = strconv.Itoa(g.Date.Year())
			}
			fmt.Fprintf(out, "  %s - %s\n", year, g.Venue.Label())
		}
		return nil
	},
}

var (
	venuesFlags listFlags
	venuesBy    string
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "List the venues you have been to",
	Long: `Lists every venue with how often you went and when you were last there.
--category picks a country chip, or a city chip with --by city.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := venuesFlags.query()
		if err != nil {
			return err
		}
		res, err := app.Venues(q, venuesBy)
		if err != nil {
			return err
		}
		if venuesFlags.json {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printVenues(cmd.OutOrStdout(), res.Items)
	},
}

var locationsJSON bool

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Show the venues visited by country and city",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		locs, err := app.Locations()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if locationsJSON {
			return printJSON(out, locs)
		}
		for _, c := range locs {
			fmt.Fprintf(out, "%s (%d)\n", c.Country, c.Visits)
			for _, city := range c.Cities {
				fmt.Fprintf(out, "  %s (%d): %s\n", city.City, city.Visits, strings.Join(city.Venues, ", "))
			}
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportView, "view", "", "curated view to export (artists, gigs, timeline, venues)")
	exportFlags.register(exportCmd, query.SortRecency)
	exportScope.register(exportCmd)

	artistsFlags.register(artistsCmd, query.SortRecency)
	gigsFlags.register(gigsCmd, query.SortRecency)
	gigsScope.register(gigsCmd)
	timelineFlags.register(timelineCmd, query.SortRecency)
	timelineScope.register(timelineCmd)
	venuesFlags.register(venuesCmd, query.SortFrequency)
	venuesCmd.Flags().StringVar(&venuesBy, "by", curate.VenuesByCountry, "what --category matches (country, city)")
	locationsCmd.Flags().BoolVar(&locationsJSON, "json", false, "print JSON")
	artistCmd.Flags().BoolVar(&artistJSON, "json", false, "print JSON")

	genresCmd.Flags().BoolVar(&genresRemote, "remote", false, "list genres known to the remote API")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
	statsCmd.Flags().BoolVar(&statsRemote, "remote", false, "show the counters kept by the remote API")
	achievementsCmd.Flags().BoolVar(&achievementsJSON, "json", false, "print JSON")
}

// -- Rendering --

func printArtists(out io.Writer, artists []model.Artist) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tARTIST\tGENRE\tSEEN\tLAST SEEN\t")
	for _, a := range artists {
		name := a.Name
		if a.Favourite {
			name += " ♥"
		}
		last := "never"
		if a.LastSeen != nil {
			last = humanize.Time(*a.LastSeen)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t\n", a.ID, name, model.Deref(a.Genre), a.TimesSeen, last)
	}
	return w.Flush()
}

func printGigs(out io.Writer, gigs []model.Gig) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, g := range gigs {
		date := model.FormatDate(g.Date)
		if date == "" {
			date = "undated"
		}
		extra := model.Deref(g.Genre)
		if g.Festival {
			extra = strings.TrimPrefix(extra+", festival", ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", date, g.DisplayName(), g.Venue.Label(), extra)
	}
	return w.Flush()
}

func printVenues(out io.Writer, venues []model.Venue) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVENUE\tCITY\tCOUNTRY\tVISITS\tLAST VISIT\t")
	for _, v := range venues {
		last := "never"
		if v.LastVisit != nil {
			last = humanize.Time(*v.LastVisit)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t\n", v.ID, v.Name, v.City, v.Country, v.TimesVisited, last)
	}
	return w.Flush()
}

func printAchievements(out io.Writer, list []achievements.Achievement) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, a := range list {
		mark := " "
		if a.Earned {
			mark = "✓"
		}
		fmt.Fprintf(w, "[%s]\t%s\t%d/%d\t\n", mark, a.Name, a.Progress, a.Goal)
	}
	return w.Flush()
}
