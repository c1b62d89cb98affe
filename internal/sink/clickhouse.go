package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/common"
)

// BatchSize bounds the rows sent per insert.
const BatchSize = 10000

const (
	EventsTable = "events"
	CountsTable = "counts"
)

// Protocol selects the ClickHouse client.
type Protocol string

const (
	// Native uses ch-go columnar blocks.
	Native Protocol = "native"
	// Batch uses clickhouse-go prepared batches.
	Batch Protocol = "batch"
)

// ErrUnknownProtocol is returned by OpenWriter for unsupported protocols.
var ErrUnknownProtocol = errors.New("unknown clickhouse protocol")

// Writer stores exported rows in ClickHouse.
type Writer interface {
	EnsureSchema(ctx context.Context) error
	WriteEvents(ctx context.Context, rows []EventRow) error
	WriteCounts(ctx context.Context, rows []CountRow) error
	Close() error
}

// SchemaStatements returns the DDL creating the database and both tables.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    load_id    UUID,
    dataset    String,
    row        UInt32,
    event_time DateTime,
    value      Float64,
    has_value  Bool,
    label      String,
    fields     String
) ENGINE = MergeTree
ORDER BY (dataset, event_time, load_id, row)`, database, EventsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    load_id   UUID,
    dataset   String,
    frequency String,
    bucket    DateTime,
    count     UInt32
) ENGINE = MergeTree
ORDER BY (dataset, frequency, bucket)`, database, CountsTable),
	}
}

func eventColumns() string {
	return "load_id, dataset, row, event_time, value, has_value, label, fields"
}

func countColumns() string {
	return "load_id, dataset, frequency, bucket, count"
}

func tableFQN(database, name string) string {
	return fmt.Sprintf("%s.%s", database, name)
}

// ParseProtocol validates a protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case Native, Batch:
		return p, nil
	case "":
		return Native, nil
	default:
		return "", errors.Wrapf(ErrUnknownProtocol, "%q", s)
	}
}

// OpenWriter connects to ClickHouse with the configured protocol.
func OpenWriter(ctx context.Context, cfg common.ClickHouseConfig, logger *zap.Logger) (Writer, error) {
	p, err := ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	switch p {
	case Batch:
		return OpenBatch(ctx, cfg)
	default:
		return DialNative(ctx, cfg, logger)
	}
}

func eventTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
