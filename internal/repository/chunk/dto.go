package chunk

import (
	"strconv"

	"github.com/kailas-cloud/mailrag/internal/db"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

const (
	tagTrue  = "true"
	tagFalse = "false"
)

// ToHash converts a chunk into its hash fields.
func ToHash(d document.Document) map[string]string {
	isImage := tagFalse
	if d.IsImage() {
		isImage = tagTrue
	}
	fields := map[string]string{
		FieldContent: d.Content(),
		FieldSource:  d.Source(),
		FieldPage:    strconv.Itoa(d.Page()),
		FieldIsImage: isImage,
	}
	if d.Image() != "" {
		fields[FieldImage] = d.Image()
	}
	if len(d.Embedding()) > 0 {
		fields[FieldVector] = string(db.EncodeFloat32(d.Embedding()))
	}
	return fields
}

// FromHash hydrates a chunk from hash fields. Malformed numbers fall back to zero.
func FromHash(id string, fields map[string]string) document.Document {
	page, _ := strconv.Atoi(fields[FieldPage])

	var vec []float32
	if raw, ok := fields[FieldVector]; ok {
		vec, _ = db.DecodeFloat32([]byte(raw))
	}

	return document.Reconstruct(
		id,
		fields[FieldContent],
		vec,
		fields[FieldIsImage] == tagTrue,
		fields[FieldImage],
		fields[FieldSource],
		page,
	)
}
