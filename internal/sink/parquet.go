package sink

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes rows to path through a temporary file and returns the
// number of rows written.
func WriteParquet[T any](path string, rows []T) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errors.Wrap(err, "create output dir")
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, errors.Wrap(err, "create file failed")
	}

	w := parquet.NewGenericWriter[T](f)
	n, err := w.Write(rows)
	if err == nil {
		err = w.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrap(err, "write parquet failed")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrap(err, "rename failed")
	}
	return n, nil
}

// ReadParquet reads every row of a file written by WriteParquet.
func ReadParquet[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "parquet open %s", filepath.Base(path))
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	out := make([]T, 0, pf.NumRows())
	buf := make([]T, 1000)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "parquet read")
		}
		if n == 0 {
			return out, nil
		}
	}
}
