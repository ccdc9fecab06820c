package tonal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
)

// KeyMode represents major or minor mode
type KeyMode int

const (
	KeyModeMajor KeyMode = iota
	KeyModeMinor
)

func (m KeyMode) String() string {
	if m == KeyModeMinor {
		return "Minor"
	}
	return "Major"
}

var keyNameRegex = regexp.MustCompile(`^([A-Ga-g](?:#|b|♯|♭)?)\s*((?i:major|minor|maj|min)|M|m)?$`)

// FormatKey renders a key as "<Tonic> Major" or "<Tonic> Minor" using sharp
// spellings, e.g. "C Major", "F# Minor"
func FormatKey(tonic chroma.PitchClass, isMajor bool) string {
	mode := KeyModeMajor
	if !isMajor {
		mode = KeyModeMinor
	}
	return tonic.String() + " " + mode.String()
}

// ParseKey reads a key name such as "C Major", "a minor", "F#m" or "Bb".
// A bare tonic is major.
func ParseKey(name string) (tonic chroma.PitchClass, isMajor bool, err error) {
	m := keyNameRegex.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, false, fmt.Errorf("invalid key name %q", name)
	}

	note := strings.ToUpper(m[1][:1]) + m[1][1:]
	tonic, ok := chroma.ParsePitchClass(note)
	if !ok {
		return 0, false, fmt.Errorf("invalid key tonic %q", m[1])
	}

	switch strings.ToLower(m[2]) {
	case "minor", "min":
		return tonic, false, nil
	case "m":
		// "M" is major, "m" is minor
		return tonic, m[2] == "M", nil
	default:
		return tonic, true, nil
	}
}
