package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	DefaultPostgresTable       = "shape_records"
	DefaultPostgresColumn      = "record"
	DefaultPostgresOrderColumn = "position"
)

// PostgresOptions names the table holding one JSON record per row.
// Table may be schema-qualified ("netdata.shape_records").
type PostgresOptions struct {
	Table       string `yaml:"table"`
	Column      string `yaml:"column"`
	OrderColumn string `yaml:"order_column"`
}

func (o PostgresOptions) withDefaults() PostgresOptions {
	if o.Table == "" {
		o.Table = DefaultPostgresTable
	}
	if o.Column == "" {
		o.Column = DefaultPostgresColumn
	}
	if o.OrderColumn == "" {
		o.OrderColumn = DefaultPostgresOrderColumn
	}
	return o
}

// PostgresSource reads records from a json/jsonb column. Row order,
// and therefore index insertion order, follows OrderColumn.
type PostgresSource struct {
	dsn  string
	opts PostgresOptions
}

// NewPostgresSource creates a source for dsn.
func NewPostgresSource(dsn string, opts PostgresOptions) *PostgresSource {
	return &PostgresSource{dsn: dsn, opts: opts.withDefaults()}
}

func (p *PostgresSource) String() string {
	return redactDSN(p.dsn) + "#" + p.opts.Table
}

// Query returns the SELECT statement the source runs.
func (p *PostgresSource) Query() string {
	return fmt.Sprintf("SELECT %s::text FROM %s ORDER BY %s",
		pgx.Identifier{p.opts.Column}.Sanitize(),
		pgx.Identifier(strings.Split(p.opts.Table, ".")).Sanitize(),
		pgx.Identifier{p.opts.OrderColumn}.Sanitize(),
	)
}

// Ping connects and pings the server.
func (p *PostgresSource) Ping(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return unavailable(p.String(), fmt.Errorf("connect: %w", err))
	}
	defer func() { _ = conn.Close(context.Background()) }()
	if err := conn.Ping(ctx); err != nil {
		return unavailable(p.String(), fmt.Errorf("ping: %w", err))
	}
	return nil
}

// Load connects, reads every row, and closes the connection.
func (p *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	origin := p.String()

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return nil, unavailable(origin, fmt.Errorf("connect: %w", err))
	}
	defer func() { _ = conn.Close(context.Background()) }()

	rows, err := conn.Query(ctx, p.Query())
	if err != nil {
		return nil, unavailable(origin, fmt.Errorf("query: %w", err))
	}

	records := []json.RawMessage{}
	size := 0
	for rows.Next() {
		var text *string
		if err := rows.Scan(&text); err != nil {
			rows.Close()
			return nil, unavailable(origin, fmt.Errorf("scan: %w", err))
		}
		// A NULL row is kept so the index reports it as a skipped record.
		raw := json.RawMessage("null")
		if text != nil {
			raw = json.RawMessage(*text)
		}
		size += len(raw)
		records = append(records, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(origin, fmt.Errorf("rows: %w", err))
	}

	return &Snapshot{
		Records:  records,
		Digest:   recordDigest(records),
		Origin:   origin,
		Bytes:    size,
		Duration: time.Since(start),
	}, nil
}
