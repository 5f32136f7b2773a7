package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultIndexes lists the indexes created with a new schema as
// {table, column} pairs.
var DefaultIndexes = [][2]string{
	{"artists", "name"},
	{"venues", "name"},
	{"venues", "city"},
	{"gigs", "gig_date"},
	{"gigs", "venue_id"},
	{"gig_artists", "artist_id"},
}

// artistSelect aggregates per-artist gig counts and the latest gig date.
const artistSelect = `SELECT a.id, a.remote_id, a.name, a.genre, a.image_url, a.favourite,
	COUNT(ga.gig_id), MAX(g.gig_date)
	FROM artists a
	LEFT JOIN gig_artists ga ON ga.artist_id = a.id
	LEFT JOIN gigs g ON g.id = ga.gig_id`

const artistGroupBy = ` GROUP BY a.id, a.remote_id, a.name, a.genre, a.image_url, a.favourite`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// SQLStore manages a gig library in any database with a Dialect.
// It implements the Store interface.
type SQLStore struct {
	path    string
	conn    *sql.DB
	dialect Dialect
}

// Open opens an existing gig library and applies pending migrations.
func Open(d Dialect, pathOrConnStr string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &SQLStore{path: pathOrConnStr, conn: conn, dialect: d}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Create opens a database and builds the full schema.
func Create(d Dialect, pathOrConnStr string) (*SQLStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	db := &SQLStore{path: pathOrConnStr, conn: conn, dialect: d}
	if err := db.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *SQLStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the file path or connection string of the database.
func (db *SQLStore) Path() string {
	return db.path
}

// Conn returns the underlying *sql.DB connection for advanced query usage.
func (db *SQLStore) Conn() *sql.DB {
	return db.conn
}

func (db *SQLStore) createSchema() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"artists", db.dialect.CreateArtistsTableSQL()},
		{"venues", db.dialect.CreateVenuesTableSQL()},
		{"gigs", db.dialect.CreateGigsTableSQL()},
		{"gig_artists", db.dialect.CreateGigArtistsTableSQL()},
		{"saved_queries", db.dialect.CreateSavedQueryTableSQL()},
	}
	for _, t := range tables {
		if _, err := tx.Exec(t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}

	for _, ix := range DefaultIndexes {
		name := fmt.Sprintf("%s_%s_idx", ix[0], ix[1])
		if _, err := tx.Exec(db.dialect.CreateIndexSQL(name, ix[0], ix[1])); err != nil {
			return fmt.Errorf("creating index %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// Migrate applies schema migrations for databases created by older builds.
func (db *SQLStore) Migrate() error {
	migrations := []struct {
		table, column, ddl string
	}{
		{"artists", "image_url", "ALTER TABLE artists ADD COLUMN image_url TEXT NOT NULL DEFAULT ''"},
		{"gigs", "notes", "ALTER TABLE gigs ADD COLUMN notes TEXT NOT NULL DEFAULT ''"},
		{"venues", "remote_id", "ALTER TABLE venues ADD COLUMN remote_id BIGINT NOT NULL DEFAULT 0"},
		{"venues", "address", "ALTER TABLE venues ADD COLUMN address TEXT NOT NULL DEFAULT ''"},
	}
	for _, m := range migrations {
		var count int
		if err := db.conn.QueryRow(db.dialect.SchemaCheckColumnSQL(m.table, m.column)).Scan(&count); err != nil {
			return fmt.Errorf("checking %s.%s: %w", m.table, m.column, err)
		}
		if count > 0 {
			continue
		}
		if _, err := db.conn.Exec(m.ddl); err != nil {
			return fmt.Errorf("adding %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

// UpsertArtist finds an artist by case-insensitive name or inserts it.
// Existing rows pick up a genre, image and remote id they were missing;
// the local favourite flag is never overwritten.
func (db *SQLStore) UpsertArtist(a *model.Artist) (int64, error) {
	return db.upsertArtist(db.conn, a)
}

func (db *SQLStore) upsertArtist(q querier, a *model.Artist) (int64, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return 0, errors.New("artist name is empty")
	}

	var id int64
	err := q.QueryRow(db.dialect.Rebind(
		"SELECT id FROM artists WHERE LOWER(name) = LOWER(?) ORDER BY id LIMIT 1"), name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = q.QueryRow(db.dialect.Rebind(
			"INSERT INTO artists (remote_id, name, genre, image_url, favourite) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			a.RemoteID, name, nullString(a.Genre), a.ImageURL, a.Favourite,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("inserting artist %q: %w", name, err)
		}
		return id, nil
	case err != nil:
		return 0, fmt.Errorf("looking up artist %q: %w", name, err)
	}

	_, err = q.Exec(db.dialect.Rebind(`UPDATE artists SET
		genre = COALESCE(genre, ?),
		image_url = CASE WHEN image_url = '' THEN ? ELSE image_url END,
		remote_id = CASE WHEN remote_id = 0 THEN ? ELSE remote_id END
		WHERE id = ?`),
		nullString(a.Genre), a.ImageURL, a.RemoteID, id)
	if err != nil {
		return 0, fmt.Errorf("updating artist %q: %w", name, err)
	}
	return id, nil
}

// UpsertVenue finds a venue by case-insensitive name and city or inserts it.
// Existing rows pick up a country, address and remote id they were missing.
// A venue without a name is not stored and yields id 0.
func (db *SQLStore) UpsertVenue(v *model.Venue) (int64, error) {
	return db.upsertVenue(db.conn, v)
}

func (db *SQLStore) upsertVenue(q querier, v *model.Venue) (int64, error) {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return 0, nil
	}

	var id int64
	err := q.QueryRow(db.dialect.Rebind(
		"SELECT id FROM venues WHERE LOWER(name) = LOWER(?) AND LOWER(city) = LOWER(?) ORDER BY id LIMIT 1"),
		name, v.City).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = q.QueryRow(db.dialect.Rebind(
			"INSERT INTO venues (remote_id, name, city, country, address) VALUES (?, ?, ?, ?, ?) RETURNING id"),
			v.RemoteID, name, v.City, v.Country, v.Address).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("inserting venue %q: %w", name, err)
		}
		return id, nil
	case err != nil:
		return 0, fmt.Errorf("looking up venue %q: %w", name, err)
	}

	if v.RemoteID == 0 && v.Address == "" && v.Country == "" {
		return id, nil
	}
	_, err = q.Exec(db.dialect.Rebind(`UPDATE venues SET
		country = CASE WHEN country = '' THEN ? ELSE country END,
		address = CASE WHEN address = '' THEN ? ELSE address END,
		remote_id = CASE WHEN remote_id = 0 THEN ? ELSE remote_id END
		WHERE id = ?`),
		v.Country, v.Address, v.RemoteID, id)
	if err != nil {
		return 0, fmt.Errorf("updating venue %q: %w", name, err)
	}
	return id, nil
}

// InsertGig stores a gig with its venue and lineup. A gig that already
// exists (same remote id, or same date, venue and title) is not duplicated;
// created reports whether a new row was written.
func (db *SQLStore) InsertGig(g *model.Gig) (int64, bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	id, created, err := db.insertGig(tx, g)
	if err != nil {
		return 0, false, err
	}
	return id, created, tx.Commit()
}

// InsertGigs inserts gigs in a single transaction and returns how many were
// newly created. If onProgress is non-nil, it is called every 1000 gigs with
// the running count of gigs processed.
func (db *SQLStore) InsertGigs(gigs []*model.Gig, onProgress func(int)) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	created := 0
	for i, g := range gigs {
		_, isNew, err := db.insertGig(tx, g)
		if err != nil {
			return 0, fmt.Errorf("gig %d: %w", i+1, err)
		}
		if isNew {
			created++
		}
		if onProgress != nil && (i+1)%1000 == 0 {
			onProgress(i + 1)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if onProgress != nil {
		onProgress(len(gigs))
	}
	return created, nil
}

func (db *SQLStore) insertGig(q querier, g *model.Gig) (int64, bool, error) {
	venueID, err := db.upsertVenue(q, &g.Venue)
	if err != nil {
		return 0, false, err
	}

	existing, err := db.findGig(q, g, venueID)
	if err != nil {
		return 0, false, err
	}
	if existing != 0 {
		return existing, false, nil
	}

	var id int64
	err = q.QueryRow(db.dialect.Rebind(`INSERT INTO gigs
		(remote_id, title, gig_date, venue_id, genre, festival, rating, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		g.RemoteID, g.Title, db.dialect.DateParam(g.Date), nullID(venueID),
		nullString(g.Genre), g.Festival, nullInt(g.Rating), g.Notes,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("inserting gig: %w", err)
	}

	for pos, name := range g.Artists {
		if strings.TrimSpace(name) == "" {
			continue
		}
		artistID, err := db.upsertArtist(q, &model.Artist{Name: name, Genre: g.Genre})
		if err != nil {
			return 0, false, err
		}
		_, err = q.Exec(db.dialect.Rebind(
			"INSERT INTO gig_artists (gig_id, artist_id, position) VALUES (?, ?, ?) ON CONFLICT DO NOTHING"),
			id, artistID, pos)
		if err != nil {
			return 0, false, fmt.Errorf("linking artist %q: %w", name, err)
		}
	}
	return id, true, nil
}

// findGig returns the id of a stored gig matching g, or 0.
func (db *SQLStore) findGig(q querier, g *model.Gig, venueID int64) (int64, error) {
	var (
		id  int64
		err error
	)
	if g.RemoteID != 0 {
		err = q.QueryRow(db.dialect.Rebind(
			"SELECT id FROM gigs WHERE remote_id = ? ORDER BY id LIMIT 1"), g.RemoteID).Scan(&id)
	} else {
		where := []string{"LOWER(title) = LOWER(?)"}
		args := []any{g.Title}
		if g.Date == nil {
			where = append(where, "gig_date IS NULL")
		} else {
			where = append(where, "gig_date = ?")
			args = append(args, db.dialect.DateParam(g.Date))
		}
		if venueID == 0 {
			where = append(where, "venue_id IS NULL")
		} else {
			where = append(where, "venue_id = ?")
			args = append(args, venueID)
		}
		err = q.QueryRow(db.dialect.Rebind(
			"SELECT id FROM gigs WHERE "+strings.Join(where, " AND ")+" ORDER BY id LIMIT 1"),
			args...).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up gig: %w", err)
	}
	return id, nil
}

// ToggleFavourite flips an artist's favourite flag and returns the new value.
func (db *SQLStore) ToggleFavourite(artistID int64) (bool, error) {
	res, err := db.conn.Exec(db.dialect.Rebind(
		"UPDATE artists SET favourite = NOT favourite WHERE id = ?"), artistID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return false, ErrNotFound
	}

	var val bool
	err = db.conn.QueryRow(db.dialect.Rebind(
		"SELECT favourite FROM artists WHERE id = ?"), artistID).Scan(&val)
	return val, err
}

// ListArtistsSeen returns every artist with its gig count and latest gig date,
// in insertion order.
func (db *SQLStore) ListArtistsSeen() ([]model.Artist, error) {
	rows, err := db.conn.Query(artistSelect + artistGroupBy + " ORDER BY a.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtists(rows)
}

// GetArtist returns a single artist with its aggregates.
func (db *SQLStore) GetArtist(id int64) (*model.Artist, error) {
	rows, err := db.conn.Query(db.dialect.Rebind(artistSelect+" WHERE a.id = ?"+artistGroupBy), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artists, err := scanArtists(rows)
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return nil, fmt.Errorf("artist %d: %w", id, ErrNotFound)
	}
	return &artists[0], nil
}

// ListVenuesVisited returns every venue with its gig count and latest gig
// date, in insertion order.
func (db *SQLStore) ListVenuesVisited() ([]model.Venue, error) {
	rows, err := db.conn.Query(`SELECT v.id, v.remote_id, v.name, v.city, v.country, v.address,
		COUNT(g.id), MAX(g.gig_date)
		FROM venues v
		LEFT JOIN gigs g ON g.venue_id = v.id
		GROUP BY v.id, v.remote_id, v.name, v.city, v.country, v.address
		ORDER BY v.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var (
			v         model.Venue
			visits    int64
			lastVisit sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.RemoteID, &v.Name, &v.City, &v.Country, &v.Address,
			&visits, &lastVisit); err != nil {
			return nil, err
		}
		v.TimesVisited = int(visits)
		if lastVisit.Valid {
			v.LastVisit = model.ParseDate(lastVisit.String)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// ListGigs runs sel and returns the matching gigs with their lineups.
// A nil selection returns every gig.
func (db *SQLStore) ListGigs(sel *query.Selection) ([]model.Gig, error) {
	if sel == nil {
		sel = query.NewSelection()
	}
	sqlStr, args := sel.Build(db.dialect)

	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	gigs, err := scanGigs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	lineups, err := db.lineups()
	if err != nil {
		return nil, err
	}
	for i := range gigs {
		gigs[i].Artists = lineups[gigs[i].ID]
	}
	return gigs, nil
}

// lineups maps gig ids to artist names in billing order.
func (db *SQLStore) lineups() (map[int64][]string, error) {
	rows, err := db.conn.Query(`SELECT ga.gig_id, a.name FROM gig_artists ga
		JOIN artists a ON a.id = ga.artist_id
		ORDER BY ga.gig_id, ga.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]string)
	for rows.Next() {
		var (
			gigID int64
			name  string
		)
		if err := rows.Scan(&gigID, &name); err != nil {
			return nil, err
		}
		result[gigID] = append(result[gigID], name)
	}
	return result, rows.Err()
}

// DistinctGenres returns every non-empty genre used by artists or gigs, sorted.
func (db *SQLStore) DistinctGenres() ([]string, error) {
	rows, err := db.conn.Query(`SELECT genre FROM artists WHERE genre IS NOT NULL AND genre <> ''
		UNION SELECT genre FROM gigs WHERE genre IS NOT NULL AND genre <> ''
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// GigsPerYear returns the number of dated gigs per year, oldest first.
func (db *SQLStore) GigsPerYear() ([]YearBucket, error) {
	year := db.dialect.YearSQL("gig_date")
	rows, err := db.conn.Query(fmt.Sprintf(
		"SELECT %s AS y, COUNT(*) FROM gigs WHERE gig_date IS NOT NULL GROUP BY y ORDER BY y", year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []YearBucket
	for rows.Next() {
		var b YearBucket
		if err := rows.Scan(&b.Year, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// GetSavedQueries returns all saved queries ordered by name.
func (db *SQLStore) GetSavedQueries() ([]SavedQuery, error) {
	rows, err := db.conn.Query("SELECT name, query FROM saved_queries ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []SavedQuery
	for rows.Next() {
		var (
			sq  SavedQuery
			raw string
		)
		if err := rows.Scan(&sq.Name, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &sq.Query); err != nil {
			return nil, fmt.Errorf("decoding saved query %q: %w", sq.Name, err)
		}
		queries = append(queries, sq)
	}
	return queries, rows.Err()
}

// SaveQuery stores q under name, replacing any query with the same name.
func (db *SQLStore) SaveQuery(name string, q query.Query) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(db.dialect.Rebind(
		"INSERT INTO saved_queries (name, query) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET query = excluded.query"),
		name, string(raw))
	return err
}

// DeleteQuery removes a saved query by name.
func (db *SQLStore) DeleteQuery(name string) error {
	res, err := db.conn.Exec(db.dialect.Rebind("DELETE FROM saved_queries WHERE name = ?"), name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("saved query %q: %w", name, ErrNotFound)
	}
	return nil
}

func scanArtists(rows *sql.Rows) ([]model.Artist, error) {
	var artists []model.Artist
	for rows.Next() {
		var (
			a        model.Artist
			genre    sql.NullString
			lastSeen sql.NullString
			seen     int64
		)
		if err := rows.Scan(&a.ID, &a.RemoteID, &a.Name, &genre, &a.ImageURL,
			&a.Favourite, &seen, &lastSeen); err != nil {
			return nil, err
		}
		a.Genre = stringPtr(genre)
		a.TimesSeen = int(seen)
		if lastSeen.Valid {
			a.LastSeen = model.ParseDate(lastSeen.String)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// scanGigs reads rows in query.GigColumns order.
func scanGigs(rows *sql.Rows) ([]model.Gig, error) {
	var gigs []model.Gig
	for rows.Next() {
		var (
			g       model.Gig
			date    sql.NullString
			genre   sql.NullString
			rating  sql.NullInt64
			venueID sql.NullInt64
			name    sql.NullString
			city    sql.NullString
			country sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.RemoteID, &g.Title, &date, &genre, &g.Festival,
			&rating, &g.Notes, &venueID, &name, &city, &country); err != nil {
			return nil, err
		}
		if date.Valid {
			g.Date = model.ParseDate(date.String)
		}
		g.Genre = stringPtr(genre)
		if rating.Valid {
			r := int(rating.Int64)
			g.Rating = &r
		}
		g.Venue = model.Venue{
			ID:      venueID.Int64,
			Name:    name.String,
			City:    city.String,
			Country: country.String,
		}
		gigs = append(gigs, g)
	}
	return gigs, rows.Err()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
