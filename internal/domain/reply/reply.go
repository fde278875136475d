// Package reply shapes generated text and image evidence into the client payload.
package reply

import (
	"strings"

	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
)

// Image is an image excerpt that grounded the reply.
type Image struct {
	Base64     string `json:"base64"`
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
}

// Reply is the client consumable result of a drafting request.
type Reply struct {
	Answer string  `json:"answer"`
	Images []Image `json:"images"`
}

var lineBreaks = strings.NewReplacer("\n\n", "<br><br>", "\n", "<br>")

// Format normalizes line breaks for HTML surfaces and collects image evidence in evidence order.
func Format(text string, set evidence.Set) Reply {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")

	images := make([]Image, 0)
	for _, e := range set.Entries() {
		if !e.Doc.IsImage() || e.Doc.Image() == "" {
			continue
		}
		images = append(images, Image{
			Base64:     e.Doc.Image(),
			Source:     e.Doc.Source(),
			PageNumber: e.Doc.Page(),
		})
	}

	return Reply{Answer: lineBreaks.Replace(text), Images: images}
}
