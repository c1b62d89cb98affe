package donki

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/KI7MT/swx-plotter/internal/logging"
	"github.com/KI7MT/swx-plotter/internal/table"
)

// DumpPath returns the gzip JSON dump file for endpoint inside dir.
func DumpPath(dir, endpoint string) string {
	return filepath.Join(dir, endpoint+".json.gz")
}

// WriteDump stores v as gzip-compressed JSON. The file is written to a
// temporary path and renamed into place.
func WriteDump(path string, v table.Value) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.Wrap(err, "create dump dir")
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, errors.Wrap(err, "create file failed")
	}

	data, err := v.MarshalJSON()
	if err == nil {
		gz, _ := gzip.NewWriterLevel(f, gzip.BestCompression)
		if _, err = gz.Write(data); err == nil {
			err = gz.Close()
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrap(err, "write dump failed")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrap(err, "rename failed")
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "stat dump")
	}
	return info.Size(), nil
}

// ReadDump loads a dump written by WriteDump.
func ReadDump(path string) (table.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Value{}, err
	}
	defer f.Close()

	gz, err := pgzip.NewReaderN(bufio.NewReaderSize(f, 256*1024), 256*1024, runtime.NumCPU())
	if err != nil {
		return table.Value{}, errors.Wrapf(err, "gzip %s", filepath.Base(path))
	}
	defer gz.Close()

	v, err := table.Decode(gz)
	if err != nil {
		return table.Value{}, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return v, nil
}

// FileSource serves payloads from a dump directory instead of the network.
// Request parameters are ignored.
type FileSource struct {
	Dir    string
	Logger *zap.Logger
}

// Fetch reads the dump for endpoint. A missing or unreadable dump is
// reported as (zero Value, false).
func (s *FileSource) Fetch(_ context.Context, endpoint string, _ map[string]string) (table.Value, bool) {
	path := DumpPath(s.Dir, endpoint)
	v, err := ReadDump(path)
	if err != nil {
		logging.OrNop(s.Logger).Warn("["+endpoint+"] dump unavailable",
			zap.String("path", path), zap.Error(err))
		return table.Value{}, false
	}
	return v, true
}

// Download fetches endpoint from src and writes it to dir. It returns the
// dump path, or an error when the fetch produced no data.
func Download(ctx context.Context, src Source, dir, endpoint string, params map[string]string) (string, int64, error) {
	v, ok := src.Fetch(ctx, endpoint, params)
	if !ok {
		return "", 0, errors.Errorf("%s: no data", endpoint)
	}
	path := DumpPath(dir, endpoint)
	n, err := WriteDump(path, v)
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}
