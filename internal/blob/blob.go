// Package blob manages the temporary externally-stored media artifact:
// created once per job before transcription, deleted on overall
// success, deliberately preserved on failure so a retry can skip the
// expensive re-upload.
package blob

import (
	"context"
	"io"
)

// ProgressFunc receives incremental transfer progress. total is -1 when
// the stream's size is not known in advance.
type ProgressFunc func(transferred, total int64)

// Store is the durable object store boundary.
type Store interface {
	// Create uploads the stream under name and returns a locator for
	// the stored object. size may be -1 for streams of unknown length.
	Create(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (string, error)
	// Delete removes the object behind a locator.
	Delete(ctx context.Context, locator string) error
}

// progressReader reports bytes as they leave for the wire.
type progressReader struct {
	r        io.Reader
	total    int64
	count    int64
	progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.count += int64(n)
		if p.progress != nil {
			p.progress(p.count, p.total)
		}
	}
	return n, err
}
