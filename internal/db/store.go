package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-lots/internal/lots"
)

// ErrNoLots is returned by Fetch when the lots table is empty.
var ErrNoLots = errors.New("no lots imported")

const lotsSchema = `CREATE TABLE IF NOT EXISTS lots (
	id         INTEGER NOT NULL,
	lot_no     VARCHAR,
	status     VARCHAR NOT NULL,
	acreage    DOUBLE,
	dimensions VARCHAR,
	geometry   VARCHAR
)`

// Store persists lots in DuckDB and serves them back as a lots.Source.
type Store struct {
	db *sql.DB
}

var _ lots.Source = (*Store)(nil)

// NewStore wraps an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the lots table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, lotsSchema); err != nil {
		return fmt.Errorf("creating lots table: %w", err)
	}
	return nil
}

// Import replaces the stored lots with fc, keeping collection order as id.
func (s *Store) Import(ctx context.Context, fc *geojson.FeatureCollection) (int, error) {
	if err := s.Init(ctx); err != nil {
		return 0, err
	}
	catalog := lots.NewCatalog(fc)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM lots"); err != nil {
		return 0, fmt.Errorf("clearing lots: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO lots (id, lot_no, status, acreage, dimensions, geometry) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range catalog.All() {
		var geom sql.NullString
		if f.Geometry != nil {
			data, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
			if err != nil {
				return 0, fmt.Errorf("encoding %s: %w", f, err)
			}
			geom = sql.NullString{String: string(data), Valid: true}
		}
		var acreage sql.NullFloat64
		if f.Props.Acreage != nil {
			acreage = sql.NullFloat64{Float64: *f.Props.Acreage, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, int(f.ID), nullString(f.Props.LotNo), string(f.Props.Status),
			acreage, nullString(f.Props.Dimensions), geom); err != nil {
			return 0, fmt.Errorf("inserting %s: %w", f, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return catalog.Len(), nil
}

// Count returns the number of stored lots.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.Init(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM lots").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting lots: %w", err)
	}
	return n, nil
}

// Fetch reads the stored lots in id order.
func (s *Store) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT lot_no, status, acreage, dimensions, geometry FROM lots ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying lots: %w", err)
	}
	defer rows.Close()

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var (
			lotNo, dims, geom sql.NullString
			status            string
			acreage           sql.NullFloat64
		)
		if err := rows.Scan(&lotNo, &status, &acreage, &dims, &geom); err != nil {
			return nil, fmt.Errorf("scanning lot: %w", err)
		}

		props := lots.Properties{
			LotNo:      lotNo.String,
			Status:     lots.ParseStatus(status),
			Dimensions: dims.String,
		}
		if acreage.Valid {
			props.Acreage = &acreage.Float64
		}

		f := geojson.NewFeature(nil)
		if geom.Valid {
			g, err := geojson.UnmarshalGeometry([]byte(geom.String))
			if err != nil {
				return nil, fmt.Errorf("decoding geometry of lot %q: %w", props.LotNo, err)
			}
			f.Geometry = g.Geometry()
		}
		f.Properties = props.GeoJSON()
		fc.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading lots: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoLots
	}
	return fc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
