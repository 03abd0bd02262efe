package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrSchemaMissing is returned when required tables are absent
var ErrSchemaMissing = errors.New("required tables missing")

// ForeignKey declares that Column references OtherTable.OtherColumn.
// When Type is set the reference only applies to rows whose type column matches.
type ForeignKey struct {
	Column      string    `yaml:"column"`
	Type        MediaType `yaml:"type,omitempty"`
	OtherTable  string    `yaml:"other_table"`
	OtherColumn string    `yaml:"other_column"`
}

// TableSpec describes one table of the store
type TableSpec struct {
	Name        string            `yaml:"name"`
	PrimaryKey  string            `yaml:"primary_key"`
	HashID      []string          `yaml:"hash_id,omitempty"`
	NotNull     []string          `yaml:"not_null"`
	Defaults    map[string]string `yaml:"defaults,omitempty"`
	ForeignKeys []ForeignKey      `yaml:"foreign_keys,omitempty"`
	Columns     []string          `yaml:"columns,omitempty"`

	// Polymorphic tables reference a different table per type value;
	// those references are checked by the application, not the engine.
	Polymorphic bool `yaml:"polymorphic,omitempty"`

	model interface{}
}

var eventTargets = []ForeignKey{
	{Column: "media_id", Type: MediaTypeShow, OtherTable: TableShow, OtherColumn: "id"},
	{Column: "media_id", Type: MediaTypeEpisode, OtherTable: TableEpisode, OtherColumn: "id"},
	{Column: "media_id", Type: MediaTypeMovie, OtherTable: TableMovie, OtherColumn: "id"},
}

func targets(types ...MediaType) []ForeignKey {
	var fks []ForeignKey
	for _, fk := range eventTargets {
		for _, t := range types {
			if fk.Type == t {
				fks = append(fks, fk)
			}
		}
	}
	return fks
}

// tableSpecs is the required table set, in creation order
var tableSpecs = []TableSpec{
	{
		Name:       TableShow,
		PrimaryKey: "id",
		NotNull:    []string{"id", "title", "trakt_id"},
		Defaults:   map[string]string{"type": string(MediaTypeShow)},
		model:      &Show{},
	},
	{
		Name:        TableEpisode,
		PrimaryKey:  "id",
		NotNull:     []string{"id", "show_id", "season", "number", "trakt_id"},
		Defaults:    map[string]string{"type": string(MediaTypeEpisode)},
		ForeignKeys: []ForeignKey{{Column: "show_id", OtherTable: TableShow, OtherColumn: "id"}},
		model:       &Episode{},
	},
	{
		Name:       TableMovie,
		PrimaryKey: "id",
		NotNull:    []string{"id", "title", "trakt_id"},
		Defaults:   map[string]string{"type": string(MediaTypeMovie)},
		model:      &Movie{},
	},
	{
		Name:        TableWatchLog,
		PrimaryKey:  "id",
		NotNull:     []string{"id", "type", "media_id", "watched_at"},
		ForeignKeys: targets(MediaTypeEpisode, MediaTypeMovie),
		Polymorphic: true,
		model:       &WatchLogEntry{},
	},
	{
		Name:        TableCollected,
		PrimaryKey:  "id",
		HashID:      []string{"collected_at", "media_id", "type"},
		NotNull:     []string{"id", "type", "media_id", "collected_at"},
		ForeignKeys: targets(MediaTypeEpisode, MediaTypeMovie),
		Polymorphic: true,
		model:       &CollectedEntry{},
	},
	{
		Name:        TableRatings,
		PrimaryKey:  "id",
		HashID:      []string{"media_id", "rated_at", "rating", "type"},
		NotNull:     []string{"id", "type", "media_id", "rating"},
		ForeignKeys: targets(MediaTypeEpisode, MediaTypeMovie, MediaTypeShow),
		Polymorphic: true,
		model:       &RatedEntry{},
	},
	{
		Name:        TableWatchlist,
		PrimaryKey:  "id",
		NotNull:     []string{"id", "type", "media_id", "watchlisted_at"},
		ForeignKeys: targets(MediaTypeMovie, MediaTypeShow),
		Polymorphic: true,
		model:       &WatchlistEntry{},
	},
	{
		Name:       TableGenre,
		PrimaryKey: "id",
		HashID:     []string{"name", "slug"},
		NotNull:    []string{"id", "name"},
		model:      &Genre{},
	},
	{
		Name:       TableExtendedShow,
		PrimaryKey: "id",
		NotNull:    []string{"id", "title", "trakt_id"},
		Defaults:   map[string]string{"type": string(MediaTypeShow)},
		model:      &ExtendedShow{},
	},
	{
		Name:        TableExtendedEpisode,
		PrimaryKey:  "id",
		NotNull:     []string{"id", "show_id", "season", "number", "trakt_id"},
		Defaults:    map[string]string{"type": string(MediaTypeEpisode)},
		ForeignKeys: []ForeignKey{{Column: "show_id", OtherTable: TableShow, OtherColumn: "id"}},
		model:       &ExtendedEpisode{},
	},
	{
		Name:       TableExtendedMovie,
		PrimaryKey: "id",
		NotNull:    []string{"id", "title", "trakt_id"},
		Defaults:   map[string]string{"type": string(MediaTypeMovie)},
		model:      &ExtendedMovie{},
	},
	{
		Name:       TableGenreMapping,
		PrimaryKey: "id",
		HashID:     []string{"genre_id", "media_id", "type"},
		NotNull:    []string{"id", "type", "media_id", "genre_id"},
		ForeignKeys: []ForeignKey{
			{Column: "genre_id", OtherTable: TableGenre, OtherColumn: "id"},
			{Column: "media_id", Type: MediaTypeShow, OtherTable: TableExtendedShow, OtherColumn: "id"},
			{Column: "media_id", Type: MediaTypeEpisode, OtherTable: TableExtendedEpisode, OtherColumn: "id"},
			{Column: "media_id", Type: MediaTypeMovie, OtherTable: TableExtendedMovie, OtherColumn: "id"},
		},
		Polymorphic: true,
		model:       &GenreMapping{},
	},
}

// RequiredTables returns the names of every table the store needs, in creation order
func RequiredTables() []string {
	names := make([]string, len(tableSpecs))
	for i, spec := range tableSpecs {
		names[i] = spec.Name
	}
	return names
}

// LookupTable returns the declaration of a table by name
func LookupTable(name string) (TableSpec, bool) {
	for _, spec := range tableSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return TableSpec{}, false
}

// AssertTables returns the required tables that do not exist yet
func (d *Database) AssertTables(ctx context.Context) []string {
	var missing []string
	for _, spec := range tableSpecs {
		if !d.TableExists(ctx, spec.Name) {
			missing = append(missing, spec.Name)
		}
	}
	return missing
}

// RequireSchema returns ErrSchemaMissing unless every required table exists
func (d *Database) RequireSchema(ctx context.Context) error {
	if missing := d.AssertTables(ctx); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

// CreateTables creates every missing required table, looking each one up by
// name. Existing tables are left untouched.
func (d *Database) CreateTables(ctx context.Context) error {
	migrator := d.db.WithContext(ctx).Migrator()
	for _, name := range d.AssertTables(ctx) {
		spec, ok := LookupTable(name)
		if !ok {
			return fmt.Errorf("no declaration for table %s", name)
		}
		if err := migrator.CreateTable(spec.model); err != nil {
			return fmt.Errorf("failed to create table %s: %w", spec.Name, err)
		}
		d.logger.WithField("table", spec.Name).Info("Created table")
	}
	return nil
}

// EnsureSchema creates any missing tables and verifies the result
func (d *Database) EnsureSchema(ctx context.Context) error {
	err := d.RequireSchema(ctx)
	if err == nil {
		return nil
	}
	d.logger.WithError(err).Info("Creating missing tables")

	if err := d.CreateTables(ctx); err != nil {
		return err
	}
	return d.RequireSchema(ctx)
}

// Describe returns every table declaration with its column list
func (d *Database) Describe() ([]TableSpec, error) {
	specs := make([]TableSpec, 0, len(tableSpecs))
	for _, spec := range tableSpecs {
		stmt := &gorm.Statement{DB: d.db}
		if err := stmt.Parse(spec.model); err != nil {
			return nil, fmt.Errorf("failed to parse model for %s: %w", spec.Name, err)
		}
		spec.Columns = append([]string(nil), stmt.Schema.DBNames...)
		specs = append(specs, spec)
	}
	return specs, nil
}

// Violation counts rows whose reference does not resolve
type Violation struct {
	Table  string    `json:"table"`
	Column string    `json:"column"`
	Type   MediaType `json:"type,omitempty"`
	Target string    `json:"target,omitempty"`
	Count  int64     `json:"count"`
}

func (v Violation) String() string {
	if v.Target == "" {
		return fmt.Sprintf("%s.%s: %d rows with an undeclared type", v.Table, v.Column, v.Count)
	}
	return fmt.Sprintf("%s.%s (type %s) -> %s: %d dangling rows", v.Table, v.Column, v.Type, v.Target, v.Count)
}

// ValidateReferences checks every declared polymorphic reference against its target table
func (d *Database) ValidateReferences(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	for _, spec := range tableSpecs {
		if !spec.Polymorphic {
			continue
		}

		var declared []MediaType
		for _, fk := range spec.ForeignKeys {
			subquery := d.db.Table(fk.OtherTable).Select(fk.OtherColumn)
			var (
				n   int64
				err error
			)
			if fk.Type == "" {
				n, err = d.CountWhere(ctx, spec.Name, fk.Column+" NOT IN (?)", subquery)
			} else {
				declared = append(declared, fk.Type)
				n, err = d.CountWhere(ctx, spec.Name, "type = ? AND "+fk.Column+" NOT IN (?)", fk.Type, subquery)
			}
			if err != nil {
				return nil, err
			}
			if n > 0 {
				violations = append(violations, Violation{
					Table:  spec.Name,
					Column: fk.Column,
					Type:   fk.Type,
					Target: fk.OtherTable,
					Count:  n,
				})
			}
		}

		n, err := d.CountWhere(ctx, spec.Name, "type NOT IN ?", declared)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			violations = append(violations, Violation{Table: spec.Name, Column: "type", Count: n})
		}
	}
	return violations, nil
}
