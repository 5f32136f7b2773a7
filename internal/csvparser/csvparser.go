package csvparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// Header names accepted on import and the gig field each maps to.
var fieldAliases = map[string]string{
	"date":       "date",
	"gig_date":   "date",
	"event_date": "date",
	"when":       "date",
	"artist":     "artists",
	"artists":    "artists",
	"band":       "artists",
	"headliner":  "artists",
	"lineup":     "artists",
	"title":      "title",
	"event":      "title",
	"gig":        "title",
	"venue":      "venue",
	"venue_name": "venue",
	"city":       "city",
	"town":       "city",
	"country":    "country",
	"genre":      "genre",
	"style":      "genre",
	"festival":   "festival",
	"rating":     "rating",
	"stars":      "rating",
	"score":      "rating",
	"notes":      "notes",
	"comment":    "notes",
	"comments":   "notes",
}

// exportHeader is written by WriteGigs and is itself a valid import header.
var exportHeader = []string{
	"date", "title", "artists", "venue", "city", "country",
	"genre", "festival", "rating", "notes",
}

// itemHeader is written by WriteItems and WriteGroups.
var itemHeader = []string{"id", "name", "date", "count", "category", "favourite"}

// savedQueryHeader is the saved query CSV layout.
var savedQueryHeader = []string{"name", "search", "category", "sort", "order", "favourites"}

// ReadResult contains the outcome of a CSV import operation.
type ReadResult struct {
	Gigs     []*model.Gig
	Count    int
	Excluded int
}

// ValidateHeader checks that a CSV file names an artist or title column.
func ValidateHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(newNullStripper(f))
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	return checkColumns(buildColumnMap(header), header)
}

func checkColumns(colMap map[string]int, header []string) error {
	_, hasArtist := colMap["artists"]
	_, hasTitle := colMap["title"]
	if !hasArtist && !hasTitle {
		return fmt.Errorf("no artist or title column in header (found: %s)", strings.Join(header, ", "))
	}
	return nil
}

// ReadGigs reads gigs from a CSV file whose header names its columns.
// Rows with neither an artist nor a title, and malformed rows, are counted
// as excluded. Pass 0 for no limit. onProgress, if non-nil, is called every
// 1000 gigs.
func ReadGigs(path string, limit int, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f, limit, onProgress)
}

// Read is ReadGigs over an arbitrary reader.
func Read(r io.Reader, limit int, onProgress func(count int)) (*ReadResult, error) {
	reader := csv.NewReader(newNullStripper(r))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // allow variable field counts

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	colMap := buildColumnMap(header)
	if err := checkColumns(colMap, header); err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}

	result := &ReadResult{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Skip malformed rows
			result.Excluded++
			continue
		}

		if limit > 0 && result.Count >= limit {
			break
		}

		gig := rowToGig(row, colMap)
		if gig == nil {
			result.Excluded++
			continue
		}
		result.Gigs = append(result.Gigs, gig)
		result.Count++

		if onProgress != nil && result.Count%1000 == 0 {
			onProgress(result.Count)
		}
	}

	return result, nil
}

// buildColumnMap maps gig fields to column indices. The first matching
// column wins.
func buildColumnMap(header []string) map[string]int {
	colMap := make(map[string]int)
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		col = strings.ReplaceAll(col, " ", "_")
		if field, ok := fieldAliases[col]; ok {
			if _, seen := colMap[field]; !seen {
				colMap[field] = i
			}
		}
	}
	return colMap
}

// rowToGig converts a row using the column mapping, or returns nil when
// the row has neither artists nor a title.
func rowToGig(row []string, colMap map[string]int) *model.Gig {
	get := func(field string) string {
		i, ok := colMap[field]
		if !ok {
			return ""
		}
		return strings.TrimSpace(safeIndex(row, i))
	}

	g := &model.Gig{
		Title:    get("title"),
		Date:     model.ParseDate(get("date")),
		Artists:  splitArtists(get("artists")),
		Genre:    model.StringPtr(get("genre")),
		Festival: parseFlag(get("festival")),
		Rating:   parseRating(get("rating")),
		Notes:    get("notes"),
		Venue: model.Venue{
			Name:    get("venue"),
			City:    get("city"),
			Country: get("country"),
		},
	}
	if g.Title == "" && len(g.Artists) == 0 {
		return nil
	}
	return g
}

// splitArtists splits a lineup on ';' or '|', keeping billing order.
func splitArtists(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	var names []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "true", "1", "x":
		return true
	}
	return false
}

func parseRating(s string) *int {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	r := int(f)
	return &r
}

// WriteGigs writes gigs to a CSV file in the import format.
func WriteGigs(path string, gigs []model.Gig) error {
	return writeFile(path, func(w *csv.Writer) error {
		if err := w.Write(exportHeader); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, g := range gigs {
			festival := ""
			if g.Festival {
				festival = "y"
			}
			rating := ""
			if g.Rating != nil {
				rating = strconv.Itoa(*g.Rating)
			}
			row := []string{
				model.FormatDate(g.Date),
				g.Title,
				strings.Join(g.Artists, "; "),
				g.Venue.Name,
				g.Venue.City,
				g.Venue.Country,
				model.Deref(g.Genre),
				festival,
				rating,
				g.Notes,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
		return nil
	})
}

// WriteItems writes a curated list to CSV in display order.
func WriteItems(path string, items []model.ListItem) error {
	return writeFile(path, func(w *csv.Writer) error {
		if err := w.Write(itemHeader); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, it := range items {
			if err := w.Write(itemRow(it)); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
		return nil
	})
}

// WriteGroups writes a year-grouped list with a leading year column.
func WriteGroups(path string, groups []curate.Group[model.ListItem]) error {
	return writeFile(path, func(w *csv.Writer) error {
		if err := w.Write(append([]string{"year"}, itemHeader...)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, grp := range groups {
			for _, it := range grp.Items {
				if err := w.Write(append([]string{grp.Key}, itemRow(it)...)); err != nil {
					return fmt.Errorf("writing row: %w", err)
				}
			}
		}
		return nil
	})
}

func itemRow(it model.ListItem) []string {
	return []string{
		strconv.FormatInt(it.ID, 10),
		it.DisplayName,
		model.FormatDate(it.Timestamp),
		strconv.Itoa(it.Frequency),
		model.Deref(it.Category),
		strconv.FormatBool(it.Favourite),
	}
}

// SavedQueryEntry represents a single row in a saved query CSV file.
type SavedQueryEntry struct {
	Name  string
	Query query.Query
}

// ReadSavedQueries reads saved queries from a CSV file.
// Expected header: name, search, category, sort, order, favourites
func ReadSavedQueries(path string) ([]SavedQueryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < len(savedQueryHeader) {
		return nil, fmt.Errorf("invalid saved query header: expected %v", savedQueryHeader)
	}
	for i, want := range savedQueryHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return nil, fmt.Errorf("invalid saved query header: expected %v", savedQueryHeader)
		}
	}

	var entries []SavedQueryEntry
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		key, err := query.ParseSortKey(safeIndex(row, 3))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dir, err := query.ParseDirection(safeIndex(row, 4))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		q := query.Default().
			WithSearch(safeIndex(row, 1)).
			WithCategory(safeIndex(row, 2)).
			WithSort(key, dir).
			WithFavouritesOnly(parseFlag(safeIndex(row, 5)))
		entries = append(entries, SavedQueryEntry{Name: safeIndex(row, 0), Query: q})
	}

	return entries, nil
}

// WriteSavedQueries writes saved queries to a CSV file.
func WriteSavedQueries(path string, entries []SavedQueryEntry) error {
	return writeFile(path, func(w *csv.Writer) error {
		if err := w.Write(savedQueryHeader); err != nil {
			return err
		}
		for _, e := range entries {
			q := e.Query
			row := []string{
				e.Name, q.SearchText, q.Category, string(q.SortKey),
				string(q.Direction), strconv.FormatBool(q.FavouritesOnly),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeFile(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := write(writer); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return f.Close()
}

// safeIndex returns the value at index i, or empty string if out of bounds.
func safeIndex(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// nullStripper wraps a reader and strips null bytes from the stream.
// Spreadsheet exports occasionally contain them and they break csv.Reader.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		// Replace null bytes in place
		cleaned := strings.ReplaceAll(string(p[:n]), "\x00", "")
		copy(p, cleaned)
		n = len(cleaned)
	}
	return n, err
}
