package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/query"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage saved curation queries",
}

var saveFlags listFlags

var queriesSaveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the list flags under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := saveFlags.query()
		if err != nil {
			return err
		}
		if err := app.SaveQuery(args[0], q); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved query %q (%s)\n", args[0], q.Values().Encode())
		return nil
	},
}

var queriesListJSON bool

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := app.GetSavedQueries()
		if err != nil {
			return err
		}
		if queriesListJSON {
			return printJSON(cmd.OutOrStdout(), saved)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSEARCH\tCATEGORY\tSORT\tORDER\tFAVOURITES\t")
		for _, s := range saved {
			q := s.Query
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t\n",
				s.Name, q.SearchText, q.Category, q.SortKey, q.Direction, q.FavouritesOnly)
		}
		return w.Flush()
	},
}

var queriesDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.DeleteSavedQuery(args[0]); err != nil {
			return fmt.Errorf("deleting query %q: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted query %q\n", args[0])
		return nil
	},
}

var (
	runView string
	runJSON bool
)

var queriesRunCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Show a view curated by a saved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := app.SavedQuery(args[0])
		if err != nil {
			return err
		}
		return runSavedQuery(cmd, q)
	},
}

func runSavedQuery(cmd *cobra.Command, q query.Query) error {
	out := cmd.OutOrStdout()
	switch runView {
	case ViewArtists:
		res, err := app.Artists(q)
		if err != nil {
			return err
		}
		if runJSON {
			return printJSON(out, res)
		}
		return printArtists(out, res.Items)
	case ViewGigs:
		res, err := app.Gigs(q, query.Scope{})
		if err != nil {
			return err
		}
		if runJSON {
			return printJSON(out, res)
		}
		return printGigs(out, res.Items)
	case ViewTimeline:
		res, err := app.Timeline(q, query.Scope{})
		if err != nil {
			return err
		}
		if runJSON {
			return printJSON(out, res)
		}
		for _, g := range res.Groups {
			fmt.Fprintf(out, "== %s (%d) ==\n", g.Key, len(g.Items))
			if err := printGigs(out, g.Items); err != nil {
				return err
			}
		}
		return nil
	case ViewVenues:
		res, err := app.Venues(q, curate.VenuesByCountry)
		if err != nil {
			return err
		}
		if runJSON {
			return printJSON(out, res)
		}
		return printVenues(out, res.Items)
	}
	return fmt.Errorf("unknown view %q", runView)
}

var queriesImportCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Load saved queries from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.ImportSavedQueries(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d queries\n", n)
		return nil
	},
}

var queriesExportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Write saved queries to a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := app.ExportSavedQueries(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d queries to %s\n", n, args[0])
		return nil
	},
}

func init() {
	saveFlags.register(queriesSaveCmd, query.SortRecency)
	queriesListCmd.Flags().BoolVar(&queriesListJSON, "json", false, "print JSON")
	queriesRunCmd.Flags().StringVar(&runView, "view", ViewArtists, "view to curate (artists, gigs, timeline, venues)")
	queriesRunCmd.Flags().BoolVar(&runJSON, "json", false, "print JSON")

	queriesCmd.AddCommand(
		queriesSaveCmd,
		queriesListCmd,
		queriesDeleteCmd,
		queriesRunCmd,
		queriesImportCmd,
		queriesExportCmd,
	)
}
