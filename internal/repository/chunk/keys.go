package chunk

import "strings"

// Hash field names of a stored chunk.
const (
	FieldContent = "content"
	FieldSource  = "source"
	FieldPage    = "page"
	FieldIsImage = "is_image"
	FieldImage   = "image"
	FieldVector  = "vector"
)

// ReturnFields are the hash fields loaded for retrieved chunks (the vector is left out).
var ReturnFields = []string{FieldContent, FieldSource, FieldPage, FieldIsImage, FieldImage}

// Keys derives Redis key names from the configured prefix.
type Keys struct {
	Prefix string
}

// IndexName returns the FT index covering all chunks.
func (k Keys) IndexName() string { return k.Prefix + "chunks:idx" }

// ChunkPrefix returns the key prefix of chunk hashes.
func (k Keys) ChunkPrefix() string { return k.Prefix + "chunk:" }

// ChunkKey returns the hash key of a chunk.
func (k Keys) ChunkKey(id string) string { return k.ChunkPrefix() + id }

// ChunkID strips the chunk prefix from a hash key.
func (k Keys) ChunkID(key string) string { return strings.TrimPrefix(key, k.ChunkPrefix()) }
