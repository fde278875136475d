package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// MaxContentSize is the maximum chunk content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is a retrievable chunk of a source file (immutable value object).
// The ID is unique in the store regardless of which search path returned it.
type Document struct {
	id        string
	content   string
	embedding []float32
	isImage   bool
	image     string
	source    string
	page      int
}

// New validates and creates a Document. An empty id is derived from source, page and content.
func New(id, content, source string, page int) (Document, error) {
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if source == "" {
		return Document{}, fmt.Errorf("source is required")
	}
	if page < 0 {
		return Document{}, fmt.Errorf("page must be non-negative")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if id == "" {
		id = DeriveID(source, page, content)
	}
	return Document{id: id, content: content, source: source, page: page}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, embedding []float32, isImage bool, image, source string, page int) Document {
	return Document{
		id:        id,
		content:   content,
		embedding: embedding,
		isImage:   isImage,
		image:     image,
		source:    source,
		page:      page,
	}
}

// DeriveID returns a stable identifier for a chunk without an explicit one.
func DeriveID(source string, page int, content string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(page)))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Content returns the chunk text, or the image description for image chunks.
func (d Document) Content() string { return d.content }

// Embedding returns the stored embedding vector.
func (d Document) Embedding() []float32 { return d.embedding }

// IsImage reports whether the chunk is an image excerpt.
func (d Document) IsImage() bool { return d.isImage }

// Image returns the base64 encoded image payload, empty for text chunks.
func (d Document) Image() string { return d.image }

// Source returns the originating file name.
func (d Document) Source() string { return d.source }

// Page returns the page number inside the source file.
func (d Document) Page() int { return d.page }

// Citation returns the provenance pair of the document.
func (d Document) Citation() Citation {
	return Citation{Source: d.source, Page: d.page}
}

// WithEmbedding returns a copy carrying the given vector.
func (d Document) WithEmbedding(v []float32) Document {
	d.embedding = v
	return d
}

// WithImage returns a copy marked as an image excerpt with the given payload.
func (d Document) WithImage(payload string) Document {
	d.isImage = true
	d.image = payload
	return d
}

// Citation identifies the source file and page a piece of evidence came from.
type Citation struct {
	Source string
	Page   int
}

func (c Citation) String() string {
	return fmt.Sprintf("%s (Page %d)", c.Source, c.Page)
}
