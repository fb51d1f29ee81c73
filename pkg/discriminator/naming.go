package discriminator

import (
	"strings"
	"unicode"
)

// IDL namespaces.
const (
	NamespaceGlobal = "global"
	NamespaceEvent  = "event"
)

// ForInstruction returns the tag IDL-driven tooling assigns to an
// instruction handler: "global:" followed by the snake_case name.
func ForInstruction(name string) Discriminator {
	return ComputeNamespaced(NamespaceGlobal, SnakeCase(name))
}

// SnakeCase converts PascalCase, camelCase, kebab-case or spaced names to
// snake_case. Runs of capitals stay together ("HTTPServer" -> "httpserver").
func SnakeCase(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	return strings.Join(words, "_")
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder
	var prev rune

	for i, r := range s {
		switch {
		case isSeparator(r):
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(prev) && !isSeparator(prev):
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}
