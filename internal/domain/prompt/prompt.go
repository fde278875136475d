// Package prompt renders retrieved evidence into a grounded generation prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	"github.com/kailas-cloud/mailrag/internal/domain/style"
)

const (
	preamble = "You are an AI assistant responsible for crafting email responses based on the given context. " +
		"Using the information provided, compose a detailed and professional reply to the following email query."
	plainTextDirective = "Important: DO NOT USE BOLD (**), italics (_), or any other formatting. Write in plain text only."
	sourcesDirective   = "At the end of the email, provide a list of sources in the format below, including page numbers:"
)

// UserPrefix precedes the inbound message in the user turn.
const UserPrefix = "Mail that need an answer:"

// Build renders the evidence and the style directive into the system prompt.
// Output is deterministic for identical inputs.
func Build(set evidence.Set, st style.Style) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\nContext:\n")
	writeContext(&b, set)

	b.WriteString("\nInstructions:\n")
	b.WriteString(st.Instruction())

	b.WriteString("\n\n")
	b.WriteString(plainTextDirective)

	b.WriteString("\n\n")
	b.WriteString(sourcesDirective)
	b.WriteString("\n\nSources:\n")
	for _, c := range set.Citations() {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}

	b.WriteString("\nReply:")
	return b.String()
}

// UserMessage renders the user turn for an inbound mail.
func UserMessage(mail string) string {
	return UserPrefix + mail
}

func writeContext(b *strings.Builder, set evidence.Set) {
	for i, e := range set.Entries() {
		fmt.Fprintf(b, "[%d] %s\n\n", i+1, e.Doc.Content())
	}
}
