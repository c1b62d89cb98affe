package sink

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/KI7MT/swx-plotter/internal/common"
)

// batchConn is the subset of driver.Conn the writer uses.
type batchConn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Exec(ctx context.Context, query string, args ...any) error
	Close() error
}

// BatchWriter inserts rows through clickhouse-go prepared batches.
type BatchWriter struct {
	conn     batchConn
	database string
}

// OpenBatch connects with clickhouse-go and pings the server.
func OpenBatch(ctx context.Context, cfg common.ClickHouseConfig) (*BatchWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, errors.Wrap(err, "clickhouse connection failed")
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "clickhouse ping failed")
	}
	return &BatchWriter{conn: conn, database: cfg.Database}, nil
}

func (w *BatchWriter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range SchemaStatements(w.database) {
		if err := w.conn.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

func (w *BatchWriter) WriteEvents(ctx context.Context, rows []EventRow) error {
	return sendChunks(ctx, w.conn, "INSERT INTO "+tableFQN(w.database, EventsTable), len(rows), func(b driver.Batch, i int) error {
		r := rows[i]
		id, err := uuid.Parse(r.LoadID)
		if err != nil {
			return errors.Wrapf(err, "load id %q", r.LoadID)
		}
		return b.Append(id, r.Dataset, r.Row, eventTime(r.EventTime), r.Value, r.HasValue, r.Label, r.Fields)
	})
}

func (w *BatchWriter) WriteCounts(ctx context.Context, rows []CountRow) error {
	return sendChunks(ctx, w.conn, "INSERT INTO "+tableFQN(w.database, CountsTable), len(rows), func(b driver.Batch, i int) error {
		r := rows[i]
		id, err := uuid.Parse(r.LoadID)
		if err != nil {
			return errors.Wrapf(err, "load id %q", r.LoadID)
		}
		return b.Append(id, r.Dataset, r.Frequency, eventTime(r.Bucket), r.Count)
	})
}

// sendChunks appends n rows in batches of at most BatchSize.
func sendChunks(ctx context.Context, conn batchConn, query string, n int, appendRow func(driver.Batch, int) error) error {
	for start := 0; start < n; start += BatchSize {
		end := min(start+BatchSize, n)

		batch, err := conn.PrepareBatch(ctx, query)
		if err != nil {
			return errors.Wrap(err, "prepare batch")
		}
		for i := start; i < end; i++ {
			if err := appendRow(batch, i); err != nil {
				batch.Abort()
				return errors.Wrapf(err, "append row %d", i)
			}
		}
		if err := batch.Send(); err != nil {
			return errors.Wrap(err, "send batch")
		}
	}
	return nil
}

func (w *BatchWriter) Close() error {
	return w.conn.Close()
}
