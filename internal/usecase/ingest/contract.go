package ingest

import (
	"context"

	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// ChunkWriter persists embedded chunks.
type ChunkWriter interface {
	WriteChunks(ctx context.Context, docs []document.Document) error
}
