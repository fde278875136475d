package chi

import (
	"time"

	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	domusage "github.com/kailas-cloud/mailrag/internal/domain/usage"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	ReplyType string `json:"replyType,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EvidenceItem is one fused search result with its per-path scores.
type EvidenceItem struct {
	ID           string  `json:"id"`
	Content      string  `json:"content"`
	Source       string  `json:"source"`
	Page         int     `json:"page_number"`
	IsImage      bool    `json:"is_image"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	Score        float64 `json:"score"`
}

// CitationItem identifies a source page.
type CitationItem struct {
	Source string `json:"source"`
	Page   int    `json:"page_number"`
	Label  string `json:"label"`
}

// RetrieveResponse is the body of GET /api/v1/retrieve.
type RetrieveResponse struct {
	Items     []EvidenceItem `json:"items"`
	Citations []CitationItem `json:"citations"`
	Degraded  []string       `json:"degraded,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageItem is one provider row of GET /api/v1/usage.
type UsageItem struct {
	Provider        string `json:"provider"`
	Period          string `json:"period"`
	PeriodStart     string `json:"period_start"`
	PeriodEnd       string `json:"period_end"`
	TokensUsed      int64  `json:"tokens_used"`
	TokensLimit     int64  `json:"tokens_limit"`
	TokensRemaining int64  `json:"tokens_remaining"`
	Unlimited       bool   `json:"unlimited"`
	Exhausted       bool   `json:"exhausted"`
	ResetsAt        string `json:"resets_at"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Items []UsageItem `json:"items"`
}

func usageToResponse(reports []domusage.Report) UsageResponse {
	items := make([]UsageItem, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		b := r.Budget()
		items = append(items, UsageItem{
			Provider:        r.Provider(),
			Period:          string(r.Period()),
			PeriodStart:     millisToRFC3339(r.PeriodStart()),
			PeriodEnd:       millisToRFC3339(r.PeriodEnd()),
			TokensUsed:      r.TokensUsed(),
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			Unlimited:       b.Unlimited(),
			Exhausted:       b.IsExhausted(),
			ResetsAt:        millisToRFC3339(b.ResetsAt()),
		})
	}
	return UsageResponse{Items: items}
}

func millisToRFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func evidenceToResponse(set evidence.Set) RetrieveResponse {
	items := make([]EvidenceItem, 0, set.Len())
	for _, e := range set.Entries() {
		items = append(items, EvidenceItem{
			ID:           e.Doc.ID(),
			Content:      e.Doc.Content(),
			Source:       e.Doc.Source(),
			Page:         e.Doc.Page(),
			IsImage:      e.Doc.IsImage(),
			VectorScore:  e.VectorScore,
			KeywordScore: e.KeywordScore,
			Score:        e.Combined(),
		})
	}

	cites := set.Citations()
	citations := make([]CitationItem, len(cites))
	for i, c := range cites {
		citations[i] = CitationItem{Source: c.Source, Page: c.Page, Label: c.String()}
	}

	var degraded []string
	for _, p := range set.Degraded() {
		degraded = append(degraded, string(p))
	}

	return RetrieveResponse{Items: items, Citations: citations, Degraded: degraded}
}
