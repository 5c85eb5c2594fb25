//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"context"
	"io"
)

type BasicClient interface {
	Lister
	Putter
	BufferPutter
}

type Lister interface {
	List(ctx context.Context, key string) (keys []string, err error)
}

type Putter interface {
	Put(ctx context.Context, key string, data []byte) (err error)
}

// BufferPutter can be used to put a file to S3 since File implements Read and Seek.
type BufferPutter interface {
	BufferPut(ctx context.Context, key string, buf io.ReadSeeker) (err error)
}
