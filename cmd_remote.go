package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cdtdelta/gigtrack/internal/addflow"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/server"
	"github.com/cdtdelta/gigtrack/internal/tui"
)

// -- Remote commands --

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull artists seen and attended gigs from the remote API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := app.Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d artists and %d gigs, %d new\n",
			summary.Artists, summary.Gigs, summary.Created)
		return nil
	},
}

var (
	addPick     int
	addLocation string
	addYear     string
	addGigs     []int64
)

var addCmd = &cobra.Command{
	Use:   "add [artist]",
	Short: "Find gigs by an artist and mark them attended",
	Long: `Searches the remote API for the artist, picks a suggestion (--pick),
and lists that artist's gigs, optionally narrowed by --location and --year.
Pass --gig with remote gig ids to submit them as attended; submitted gigs
are also recorded in the local library.

Example:
  gigtrack add "wet leg" --year 2022
  gigtrack add "wet leg" --year 2022 --gig 4121 --gig 4188`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		type suggestion struct {
			artists []model.Artist
			err     error
		}
		settled := make(chan suggestion, 1)
		flow, err := app.NewAddFlow(ctx, func(_ string, artists []model.Artist, err error) {
			select {
			case settled <- suggestion{artists, err}:
			default:
			}
		})
		if err != nil {
			return err
		}

		flow.SetArtistQuery(args[0])
		var s suggestion
		select {
		case s = <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		if s.err != nil {
			return fmt.Errorf("searching artists: %w", s.err)
		}
		if len(s.artists) == 0 {
			return fmt.Errorf("no artists match %q", args[0])
		}
		if addPick < 1 || addPick > len(s.artists) {
			for i, a := range s.artists {
				fmt.Fprintf(out, "%2d. %s\n", i+1, a.Name)
			}
			return fmt.Errorf("--pick must be between 1 and %d", len(s.artists))
		}

		artist := s.artists[addPick-1]
		if _, err := flow.SelectArtist(ctx, artist); err != nil {
			return err
		}
		if addLocation != "" || addYear != "" {
			if _, err := flow.SetFilters(ctx, addLocation, addYear); err != nil {
				return err
			}
		}

		if len(addGigs) == 0 {
			return printGigResults(cmd, artist, flow)
		}
		for _, id := range addGigs {
			if !flow.Toggle(id) {
				logger.Warn("gig cannot be selected", "gig", id)
			}
		}
		picked := flow.SelectedGigs()
		res, err := flow.Confirm(ctx)
		if errors.Is(err, addflow.ErrNoSelection) {
			return errors.New("none of the given gigs can be added (already attended or not listed)")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Added %d gigs\n", res.Created)
		for _, msg := range res.Errors {
			fmt.Fprintf(out, "  error: %s\n", msg)
		}
		if res.Created == 0 {
			return nil
		}
		recorded, err := app.RecordGigs(picked)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded %d in the local library\n", recorded)
		return nil
	},
}

func printGigResults(cmd *cobra.Command, artist model.Artist, flow *addflow.Flow) error {
	results := flow.Gigs()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d gigs\n", artist.Name, len(results))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range results {
		mark := " "
		if r.AlreadyAttended {
			mark = "✓"
		}
		date := model.FormatDate(r.Gig.Date)
		if date == "" {
			date = "undated"
		}
		fmt.Fprintf(w, "[%s]\t%d\t%s\t%s\t%s\t\n", mark, r.Gig.RemoteID, date, r.Gig.DisplayName(), r.Gig.Venue.Label())
	}
	return w.Flush()
}

// -- Surfaces --

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the curated views as a JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		return server.New(app, logger).ListenAndServe(cmd.Context(), addr)
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse artists and the timeline interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(tui.New(app), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	},
}

func init() {
	addCmd.Flags().IntVar(&addPick, "pick", 1, "which artist suggestion to use (1-based)")
	addCmd.Flags().StringVar(&addLocation, "location", "", "narrow gigs to a city or venue")
	addCmd.Flags().StringVar(&addYear, "year", "", "narrow gigs to a year")
	addCmd.Flags().Int64SliceVar(&addGigs, "gig", nil, "remote gig id to mark attended (repeatable)")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}
