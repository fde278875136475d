package style

import "strings"

// Style is the requested reply style.
type Style string

// Reply style constants.
const (
	Concise  Style = "concise"
	Standard Style = "standard"
	Detailed Style = "detailed"
	// Default applies when the client sends no style or an unknown one.
	Default Style = "default"
)

// Parse maps a client supplied value to a Style. Unknown and empty values map to Default.
func Parse(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case Concise:
		return Concise
	case Standard:
		return Standard
	case Detailed:
		return Detailed
	default:
		return Default
	}
}

// IsValid checks if the style is one of the enumerated values.
func (s Style) IsValid() bool {
	return s == Concise || s == Standard || s == Detailed || s == Default
}

// Instruction returns the generation directive for the style.
func (s Style) Instruction() string {
	switch s {
	case Concise:
		return "Keep your response brief and to the point, highlighting only the key information."
	case Standard:
		return "Provide a detailed response covering all relevant aspects, but avoid unnecessary elaboration."
	case Detailed:
		return "Ensure the response is thorough, addressing all possible nuances and considerations."
	case Default:
		return "Provide a professional response based on the provided context."
	default:
		return Default.Instruction()
	}
}
