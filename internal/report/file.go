package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/brewcrawl/internal/model"
)

// ErrReadFile is returned when a data file cannot be read or decoded.
var ErrReadFile = errors.New("failed to read data file")

// filePerm is the permission of written data files.
const filePerm = 0o644

// WriteLinks writes beer URLs as a JSON array of strings.
func WriteLinks(path string, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	return writeJSONFile(path, urls)
}

// ReadLinks reads a JSON array of beer URLs.
func ReadLinks(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFile, path, err)
	}
	return urls, nil
}

// WriteDataset writes the raw dataset as a JSON object from URL to record,
// in insertion order.
func WriteDataset(path string, ds *model.Dataset) error {
	return writeJSONFile(path, ds)
}

// ReadDataset reads a raw dataset file.
func ReadDataset(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	ds := model.NewDataset()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFile, path, err)
	}
	return ds, nil
}

// WriteRecords writes formatted records as a JSON array.
func WriteRecords(path string, records []*model.Record) error {
	if records == nil {
		records = []*model.Record{}
	}
	return writeJSONFile(path, records)
}

// ReadRecords reads a formatted dataset file.
func ReadRecords(path string) ([]*model.Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFile, path, err)
	}
	records := make([]*model.Record, 0, len(raw))
	for i, msg := range raw {
		r := model.NewRecord()
		if err := r.UnmarshalJSON(msg); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %w", ErrReadFile, path, i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// writeJSONFile encodes v without HTML escaping and replaces path
// atomically.
func writeJSONFile(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path. The destination is either the old or the new content.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
