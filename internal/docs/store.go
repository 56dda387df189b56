// Package docs stores uploaded verification documents. The server keeps only
// an opaque reference on the executor row; the bytes live in a local
// directory or an S3-compatible bucket depending on configuration.
package docs

import (
	"context"
	"io"
)

// Store persists verification documents and returns an opaque reference.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (ref string, err error)
}
