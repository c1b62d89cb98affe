package sink

import (
	"context"
	"fmt"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/common"
	"github.com/KI7MT/swx-plotter/internal/logging"
)

// EventBatch holds event column data for native insert
type EventBatch struct {
	LoadID    *proto.ColUUID
	Dataset   *proto.ColStr
	Row       *proto.ColUInt32
	EventTime *proto.ColDateTime
	Value     *proto.ColFloat64
	HasValue  *proto.ColBool
	Label     *proto.ColStr
	Fields    *proto.ColStr
}

func NewEventBatch() *EventBatch {
	return &EventBatch{
		LoadID:    new(proto.ColUUID),
		Dataset:   new(proto.ColStr),
		Row:       new(proto.ColUInt32),
		EventTime: new(proto.ColDateTime),
		Value:     new(proto.ColFloat64),
		HasValue:  new(proto.ColBool),
		Label:     new(proto.ColStr),
		Fields:    new(proto.ColStr),
	}
}

func (b *EventBatch) Reset() {
	b.LoadID.Reset()
	b.Dataset.Reset()
	b.Row.Reset()
	b.EventTime.Reset()
	b.Value.Reset()
	b.HasValue.Reset()
	b.Label.Reset()
	b.Fields.Reset()
}

func (b *EventBatch) Len() int {
	return b.Row.Rows()
}

func (b *EventBatch) Input() proto.Input {
	return proto.Input{
		{Name: "load_id", Data: b.LoadID},
		{Name: "dataset", Data: b.Dataset},
		{Name: "row", Data: b.Row},
		{Name: "event_time", Data: b.EventTime},
		{Name: "value", Data: b.Value},
		{Name: "has_value", Data: b.HasValue},
		{Name: "label", Data: b.Label},
		{Name: "fields", Data: b.Fields},
	}
}

func (b *EventBatch) Add(r EventRow) error {
	id, err := uuid.Parse(r.LoadID)
	if err != nil {
		return errors.Wrapf(err, "load id %q", r.LoadID)
	}
	b.LoadID.Append(id)
	b.Dataset.Append(r.Dataset)
	b.Row.Append(r.Row)
	b.EventTime.Append(eventTime(r.EventTime))
	b.Value.Append(r.Value)
	b.HasValue.Append(r.HasValue)
	b.Label.Append(r.Label)
	b.Fields.Append(r.Fields)
	return nil
}

// CountBatch holds bucket column data for native insert
type CountBatch struct {
	LoadID    *proto.ColUUID
	Dataset   *proto.ColStr
	Frequency *proto.ColStr
	Bucket    *proto.ColDateTime
	Count     *proto.ColUInt32
}

func NewCountBatch() *CountBatch {
	return &CountBatch{
		LoadID:    new(proto.ColUUID),
		Dataset:   new(proto.ColStr),
		Frequency: new(proto.ColStr),
		Bucket:    new(proto.ColDateTime),
		Count:     new(proto.ColUInt32),
	}
}

func (b *CountBatch) Reset() {
	b.LoadID.Reset()
	b.Dataset.Reset()
	b.Frequency.Reset()
	b.Bucket.Reset()
	b.Count.Reset()
}

func (b *CountBatch) Len() int {
	return b.Count.Rows()
}

func (b *CountBatch) Input() proto.Input {
	return proto.Input{
		{Name: "load_id", Data: b.LoadID},
		{Name: "dataset", Data: b.Dataset},
		{Name: "frequency", Data: b.Frequency},
		{Name: "bucket", Data: b.Bucket},
		{Name: "count", Data: b.Count},
	}
}

func (b *CountBatch) Add(r CountRow) error {
	id, err := uuid.Parse(r.LoadID)
	if err != nil {
		return errors.Wrapf(err, "load id %q", r.LoadID)
	}
	b.LoadID.Append(id)
	b.Dataset.Append(r.Dataset)
	b.Frequency.Append(r.Frequency)
	b.Bucket.Append(eventTime(r.Bucket))
	b.Count.Append(r.Count)
	return nil
}

// nativeConn is the subset of *ch.Client the writer uses.
type nativeConn interface {
	Do(ctx context.Context, q ch.Query) error
	Close() error
}

// NativeWriter inserts columnar blocks over the ch-go native protocol.
type NativeWriter struct {
	conn     nativeConn
	database string
	logger   *zap.Logger
}

// DialNative connects with ch-go and pings the server.
func DialNative(ctx context.Context, cfg common.ClickHouseConfig, logger *zap.Logger) (*NativeWriter, error) {
	logger = logging.OrNop(logger)
	conn, err := ch.Dial(ctx, ch.Options{
		Logger:      logger.Named("ch"),
		Address:     cfg.Addr,
		Database:    "default",
		User:        cfg.User,
		Password:    cfg.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, errors.Wrap(err, "clickhouse connection failed")
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "clickhouse ping failed")
	}
	return newNativeWriter(conn, cfg.Database, logger), nil
}

func newNativeWriter(conn nativeConn, database string, logger *zap.Logger) *NativeWriter {
	return &NativeWriter{conn: conn, database: database, logger: logging.OrNop(logger)}
}

func (w *NativeWriter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range SchemaStatements(w.database) {
		if err := w.conn.Do(ctx, ch.Query{Body: stmt}); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

func (w *NativeWriter) WriteEvents(ctx context.Context, rows []EventRow) error {
	fqn := tableFQN(w.database, EventsTable)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES", fqn, eventColumns())
	batch := NewEventBatch()
	for _, r := range rows {
		if err := batch.Add(r); err != nil {
			return err
		}
		if batch.Len() >= BatchSize {
			if err := w.flush(ctx, query, batch.Input(), batch.Len()); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	return w.flush(ctx, query, batch.Input(), batch.Len())
}

func (w *NativeWriter) WriteCounts(ctx context.Context, rows []CountRow) error {
	fqn := tableFQN(w.database, CountsTable)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES", fqn, countColumns())
	batch := NewCountBatch()
	for _, r := range rows {
		if err := batch.Add(r); err != nil {
			return err
		}
		if batch.Len() >= BatchSize {
			if err := w.flush(ctx, query, batch.Input(), batch.Len()); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	return w.flush(ctx, query, batch.Input(), batch.Len())
}

func (w *NativeWriter) flush(ctx context.Context, query string, input proto.Input, n int) error {
	if n == 0 {
		return nil
	}
	if err := w.conn.Do(ctx, ch.Query{Body: query, Input: input}); err != nil {
		return errors.Wrap(err, "insert")
	}
	w.logger.Debug("inserted block", zap.Int("rows", n))
	return nil
}

func (w *NativeWriter) Close() error {
	return w.conn.Close()
}
