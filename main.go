package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cdtdelta/gigtrack/internal/config"
	"github.com/cdtdelta/gigtrack/internal/logging"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    *config.Config
	logger logging.Logger
	app    *App
)

// noDatabase marks commands that run without opening the store.
const noDatabase = "no-database"

var rootCmd = &cobra.Command{
	Use:   "gigtrack",
	Short: "gigtrack - a personal concert history",
	Long: `gigtrack keeps a local library of the gigs you have attended and the
artists you have seen, and lets you search, sort and group it.

The library lives in SQLite by default (database.dsn) or PostgreSQL.
Settings come from --config, then GIGTRACK_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		logger, err = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		closeApp()
		app, err = NewApp(cfg, logger)
		if err != nil {
			return err
		}
		if cmd.Annotations[noDatabase] != "" {
			return nil
		}
		info, err := app.OpenDatabase()
		if err != nil {
			return err
		}
		logger.Debug("database ready", "path", info.Path, "gigs", info.GigCount)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the gigtrack version",
	Annotations: map[string]string{noDatabase: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gigtrack", app.GetVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		versionCmd,
		importCmd,
		exportCmd,
		artistsCmd,
		gigsCmd,
		timelineCmd,
		genresCmd,
		statsCmd,
		achievementsCmd,
		favouriteCmd,
		artistCmd,
		venuesCmd,
		locationsCmd,
		queriesCmd,
		syncCmd,
		addCmd,
		serveCmd,
		browseCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Exit(1)
	}
}

// run executes the command line and closes the store however it ends.
func run(ctx context.Context) error {
	defer closeApp()
	return rootCmd.ExecuteContext(ctx)
}

func closeApp() {
	if app != nil {
		app.CloseDatabase()
	}
}

// -- Shared flags --

// listFlags are the curation flags accepted by every list command.
type listFlags struct {
	search     string
	category   string
	sort       string
	order      string
	favourites bool
	json       bool
}

func (f *listFlags) register(cmd *cobra.Command, defaultSort query.SortKey) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "case-insensitive text to match")
	cmd.Flags().StringVar(&f.category, "category", query.AllCategories, "category chip to restrict to")
	cmd.Flags().StringVar(&f.sort, "sort", string(defaultSort), "sort key (name, recency, frequency)")
	cmd.Flags().StringVar(&f.order, "order", string(query.Descending), "sort order (asc, desc)")
	cmd.Flags().BoolVar(&f.favourites, "favourites", false, "only favourite artists")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON instead of a table")
}

// query parses the flags through the same path as the HTTP API.
func (f *listFlags) query() (query.Query, error) {
	return query.FromValues(url.Values{
		"search":     {f.search},
		"category":   {f.category},
		"sort":       {f.sort},
		"order":      {f.order},
		"favourites": {strconv.FormatBool(f.favourites)},
	})
}

// scopeFlags narrow the gigs loaded from the store.
type scopeFlags struct {
	year      int
	city      string
	country   string
	place     string
	festivals bool
	minRating int
	from      string
	to        string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "only gigs in this year")
	cmd.Flags().StringVar(&f.city, "city", "", "only gigs in a matching city")
	cmd.Flags().StringVar(&f.country, "country", "", "only gigs in a matching country")
	cmd.Flags().StringVar(&f.place, "place", "", "only gigs whose venue, city or country matches")
	cmd.Flags().BoolVar(&f.festivals, "festivals", false, "only festivals")
	cmd.Flags().IntVar(&f.minRating, "min-rating", 0, "only gigs rated at least this")
	cmd.Flags().StringVar(&f.from, "from", "", "first gig date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last gig date (YYYY-MM-DD)")
}

// scope parses the flags through the same path as the HTTP API.
func (f *scopeFlags) scope() (query.Scope, error) {
	v := url.Values{
		"city":    {f.city},
		"country": {f.country},
		"place":   {f.place},
		"from":    {f.from},
		"to":      {f.to},
	}
	if f.year != 0 {
		v.Set("year", strconv.Itoa(f.year))
	}
	if f.minRating != 0 {
		v.Set("min_rating", strconv.Itoa(f.minRating))
	}
	if f.festivals {
		v.Set("festivals", "true")
	}
	return query.ScopeFromValues(v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
