package manifest

import (
	"bufio"
	"encoding/json"
	"io"
	"iter"
	"os"

	"github.com/zeebo/errs"
)

// offsetWriter tracks the byte offset of everything written through it.
type offsetWriter struct {
	f      *os.File
	bw     *bufio.Writer
	offset int64
}

func (w *offsetWriter) write(b []byte) error {
	n, err := w.bw.Write(b)
	w.offset += int64(n)
	return err
}

// rewind discards everything written at or after offset.
func (w *offsetWriter) rewind(offset int64) error {
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if err := w.f.Truncate(offset); err != nil {
		return err
	}
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	w.offset = offset
	return nil
}

// writeManifest streams entries into a manifest document at path without
// holding the whole document in memory. Each entry is written with a trailing
// comma; once the input is exhausted the last entry is rewritten without it.
// With no entries the header is left intact and only the closing brackets
// are appended. It returns the number of entries written.
func writeManifest(path string, entries iter.Seq[Entry]) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, Error.Wrap(f.Close())) }()

	w := &offsetWriter{f: f, bw: bufio.NewWriter(f)}
	if err := w.write([]byte("{\n")); err != nil {
		return 0, Error.Wrap(err)
	}
	if err := w.write([]byte("\"entries\": [\n")); err != nil {
		return 0, Error.Wrap(err)
	}

	var (
		last       []byte
		lastOffset int64
	)
	for e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return n, Error.Wrap(err)
		}
		lastOffset = w.offset
		last = line
		if err := w.write(append(line, ",\n"...)); err != nil {
			return n, Error.Wrap(err)
		}
		n++
	}

	if n > 0 {
		if err := w.rewind(lastOffset); err != nil {
			return n, Error.Wrap(err)
		}
		if err := w.write(append(last, '\n')); err != nil {
			return n, Error.Wrap(err)
		}
	}
	if err := w.write([]byte("]}")); err != nil {
		return n, Error.Wrap(err)
	}
	return n, Error.Wrap(w.bw.Flush())
}
