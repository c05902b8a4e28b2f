// Package index keeps assembled datasets in a Postgres table, for the
// metadata API to serve.
package index

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nci/eodatasets/crawl/extractor"
	"github.com/nci/eodatasets/model"
	"github.com/nci/eodatasets/serialise"
	"golang.org/x/net/context"
)

var ErrNotFound = errors.New("dataset not found")

var validTable = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Record is the summary the index keeps of a dataset, beside its document.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Product      string    `json:"product"`
	Label        string    `json:"label"`
	URI          string    `json:"uri"`
	CRS          string    `json:"crs"`
	Measurements []string  `json:"measurements"`
}

type Publisher struct {
	DB    *sql.DB
	table string
}

// Open connects to the database at dsn, such as
// "user=mas host=/var/run/postgresql dbname=mas sslmode=disable".
func Open(dsn, table string) (*Publisher, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p, err := NewPublisher(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func NewPublisher(db *sql.DB, table string) (*Publisher, error) {
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Publisher{DB: db, table: pq.QuoteIdentifier(table)}, nil
}

func (p *Publisher) Close() error {
	return p.DB.Close()
}

// Init creates the table if it does not exist.
func (p *Publisher) Init(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf(`create table if not exists %s (
		id uuid primary key,
		product text not null,
		label text not null,
		uri text not null,
		crs text not null default '',
		datetime timestamptz,
		footprint_wkt text,
		measurements text[] not null,
		document jsonb not null,
		indexed timestamptz not null default now()
	)`, p.table))
	return err
}

// Publish adds a dataset, or replaces the entry of the same id. uri is
// where the dataset's metadata document lives.
func (p *Publisher) Publish(ctx context.Context, doc *model.DatasetDoc, uri string) error {
	var buf bytes.Buffer
	if err := serialise.ToJSON(&buf, doc); err != nil {
		return err
	}

	footprint, err := extractor.FootprintWKT(doc.Geometry)
	if err != nil {
		return err
	}
	var wkt, datetime interface{}
	if footprint != "" {
		wkt = footprint
	}
	if t, ok := doc.Properties.Datetime(); ok {
		datetime = t.UTC()
	}

	_, err = p.DB.ExecContext(ctx, fmt.Sprintf(`insert into %s
		(id, product, label, uri, crs, datetime, footprint_wkt, measurements, document)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		on conflict (id) do update set
			product = excluded.product,
			label = excluded.label,
			uri = excluded.uri,
			crs = excluded.crs,
			datetime = excluded.datetime,
			footprint_wkt = excluded.footprint_wkt,
			measurements = excluded.measurements,
			document = excluded.document,
			indexed = now()`, p.table),
		doc.ID.String(),
		doc.Product.Name,
		doc.Label,
		uri,
		doc.CRS,
		datetime,
		wkt,
		pq.Array(doc.MeasurementNames()),
		buf.String(),
	)
	if err != nil {
		return fmt.Errorf("indexing dataset %s: %v", doc.ID, err)
	}
	return nil
}

// Lookup returns the stored JSON document of a dataset.
func (p *Publisher) Lookup(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var document string
	err := p.DB.QueryRowContext(ctx, fmt.Sprintf(`select document from %s where id = $1`, p.table), id.String()).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(document), nil
}

// Product lists the datasets of a product, newest first.
func (p *Publisher) Product(ctx context.Context, product string, limit int) ([]Record, error) {
	rows, err := p.DB.QueryContext(ctx, fmt.Sprintf(`select id, product, label, uri, crs, measurements
		from %s where product = $1 order by datetime desc nulls last, label limit $2`, p.table), product, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var id string
		if err := rows.Scan(&id, &r.Product, &r.Label, &r.URI, &r.CRS, pq.Array(&r.Measurements)); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
