package atlas

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// Field paths inside a chunk document.
const (
	FieldContent   = "content"
	FieldFilename  = "metadata.filename"
	FieldPage      = "metadata.page_number"
	FieldIsImage   = "metadata.is_image"
	FieldImage     = "metadata.image"
	FieldEmbedding = "metadata.vector_embedding"
)

// chunkDoc is the stored shape of a chunk: content at the top level, provenance
// and the embedding under metadata.
type chunkDoc struct {
	ID       any           `bson:"_id"`
	Content  string        `bson:"content"`
	Metadata chunkMetadata `bson:"metadata"`
}

type chunkMetadata struct {
	Filename   string    `bson:"filename"`
	PageNumber int       `bson:"page_number"`
	IsImage    bool      `bson:"is_image"`
	Image      string    `bson:"image,omitempty"`
	Embedding  []float32 `bson:"vector_embedding,omitempty"`
}

func toChunkDoc(d document.Document) chunkDoc {
	return chunkDoc{
		ID:      d.ID(),
		Content: d.Content(),
		Metadata: chunkMetadata{
			Filename:   d.Source(),
			PageNumber: d.Page(),
			IsImage:    d.IsImage(),
			Image:      d.Image(),
			Embedding:  d.Embedding(),
		},
	}
}

func (c chunkDoc) toDocument() document.Document {
	return document.Reconstruct(
		idString(c.ID),
		c.Content,
		c.Metadata.Embedding,
		c.Metadata.IsImage,
		c.Metadata.Image,
		c.Metadata.Filename,
		c.Metadata.PageNumber,
	)
}

// idString renders _id values written by other tools (ObjectIDs) as stable strings.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// resultProjection keeps the embedding out of search results.
var resultProjection = bson.D{
	{Key: FieldContent, Value: 1},
	{Key: FieldFilename, Value: 1},
	{Key: FieldPage, Value: 1},
	{Key: FieldIsImage, Value: 1},
	{Key: FieldImage, Value: 1},
}
