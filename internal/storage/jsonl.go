// Package storage persists pchat state in a SQLite key-value store and
// reads/writes JSONL backups of the paper library.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/paperchat/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONL decodes one T per non-empty line of r.
func ReadJSONL[T any](r io.Reader) ([]T, error) {
	var out []T
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		out = append(out, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSONL: %w", err)
	}
	return out, nil
}

// WriteJSONL encodes each item as one line of w.
func WriteJSONL[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding item %d: %w", i, err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("writing item %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}

// ReadPapers reads a paper backup. A missing file yields no papers.
func ReadPapers(path string) ([]reference.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening papers file: %w", err)
	}
	defer f.Close()

	papers, err := ReadJSONL[reference.Paper](f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return papers, nil
}

// WritePapers writes papers to path, replacing existing content.
func WritePapers(path string, papers []reference.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating papers file: %w", err)
	}
	if err := WriteJSONL(f, papers); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
