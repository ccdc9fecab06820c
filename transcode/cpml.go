package transcode

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
)

var (
	// A closed marker, or an unclosed one running to the next space
	cpmlTokenRegex = regexp.MustCompile(`<[^<>]*>|<[^<>\s]+|` + tonal.ChordTokenPattern)

	// "N.C." would otherwise yield a stray C chord
	noChordRegex = regexp.MustCompile(`\bN\.?C\.?(?:\s|$)`)
)

// ExtractSequence splits a CPML chords string into tokens in their original
// order. Section markers are kept as literal tokens; unclosed markers are
// closed. Text that matches neither a marker nor a chord symbol is dropped,
// so garbage input yields an empty sequence.
func ExtractSequence(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	raw = noChordRegex.ReplaceAllString(raw, " ")
	matches := cpmlTokenRegex.FindAllString(raw, -1)

	tokens := make([]string, 0, len(matches))
	for _, match := range matches {
		token := strings.TrimSpace(match)
		if token == "" {
			continue
		}

		if strings.HasPrefix(token, tonal.SectionMarkerPrefix) && !strings.HasSuffix(token, ">") {
			token += ">"
		}

		if len([]rune(token)) == 1 && !unicode.IsLetter([]rune(token)[0]) {
			continue
		}

		tokens = append(tokens, token)
	}

	return tokens
}

// JoinNumerals renders a numeral list the way it is stored: space separated
func JoinNumerals(numerals []string) string {
	return strings.Join(numerals, " ")
}
