package tonal

import (
	"regexp"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/chroma"
	"github.com/RyanBlaney/sonido-harmony/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultParserCacheSize bounds the memoised parse results
const DefaultParserCacheSize = 100000

// Grammar fragments for chord symbols
const (
	rootPattern       = `[A-G](?:#|b|♯|♭)?`
	qualityPattern    = `(?i:minmaj|mmaj|maj|min|dim|aug|sus[24]?)|mM|m|M|-|°|o|ø|\+|△|Δ`
	extensionPattern  = `6/9|\d+`
	alterationPattern = `[#b♯♭]\d+|(?i:add)[#b♯♭]?\d+|(?i:sus)[24]?|(?i:alt)|(?i:no3)d?|\+|°`
)

// alterationGroupPattern is a parenthesised alteration list: "(b9)", "(b9,#11)"
const alterationGroupPattern = `\((?:` + alterationPattern + `|,)+\)`

// ChordTokenPattern matches one chord symbol inside free text:
// root, optional quality, optional extension, alterations (bare or
// parenthesised), optional slash bass
const ChordTokenPattern = rootPattern +
	`(?:` + qualityPattern + `)?` +
	`(?:` + extensionPattern + `)?` +
	`(?:` + alterationPattern + `|` + alterationGroupPattern + `)*` +
	`(?:/` + rootPattern + `)?`

var (
	chordSymbolRegex = regexp.MustCompile(`^(` + rootPattern + `)` +
		`(` + qualityPattern + `)?` +
		`(` + extensionPattern + `)?` +
		`((?:` + alterationPattern + `)*)` +
		`(?:/(` + rootPattern + `))?$`)

	// Lenient prefix patterns, tried in order when the full grammar fails
	fallbackDigitsRegex  = regexp.MustCompile(`^(` + rootPattern + `)(\d+)`)
	fallbackQualityRegex = regexp.MustCompile(`^(` + rootPattern + `)((?i:maj|min)|M|m)(\d*)`)
	fallbackSymbolRegex  = regexp.MustCompile(`^(` + rootPattern + `)([°+])`)
	fallbackRootRegex    = regexp.MustCompile(`^(` + rootPattern + `)`)

	// Grouping characters some sources wrap alterations in: "C7(b9)"
	symbolCleaner = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", ",", "", " ", "")

	// A trailing "+" after an extension raises the fifth: "C7+"
	alterationFolder = strings.NewReplacer("♯", "#", "♭", "b", "+", "#5")
)

// ParsedChord is a chord symbol resolved against the quality table
type ParsedChord struct {
	Root          chroma.PitchClass `json:"root"`
	Bass          chroma.PitchClass `json:"bass"`     // Equals Root unless HasBass
	HasBass       bool              `json:"has_bass"` // Slash chord
	ChordType     ChordType         `json:"chord_type"`
	Intervals     []int             `json:"intervals"`
	QualityFamily QualityFamily     `json:"quality_family"`
	Complexity    float64           `json:"complexity"`
	Stability     float64           `json:"stability"`
	Original      string            `json:"original"`
}

// IsSlash reports whether the chord sounds over a bass other than its root
func (c ParsedChord) IsSlash() bool {
	return c.HasBass && c.Bass != c.Root
}

// PitchClasses returns the sounding pitch classes, root first
func (c ParsedChord) PitchClasses() []chroma.PitchClass {
	pcs := make([]chroma.PitchClass, 0, len(c.Intervals))
	for _, iv := range c.Intervals {
		pc := c.Root.Transpose(iv)
		if !slices.Contains(pcs, pc) {
			pcs = append(pcs, pc)
		}
	}
	return pcs
}

type parseResult struct {
	chord ParsedChord
	ok    bool
}

// ChordParser turns chord symbols into ParsedChords. Results are memoised in
// a bounded LRU cache. A ChordParser is safe for concurrent use.
type ChordParser struct {
	cache  *lru.Cache[string, parseResult]
	logger logging.Logger
}

// NewChordParser creates a parser with the default cache size
func NewChordParser() *ChordParser {
	return NewChordParserWithCache(DefaultParserCacheSize)
}

// NewChordParserWithCache creates a parser whose cache holds up to size
// symbols. A size of zero or less disables caching.
func NewChordParserWithCache(size int) *ChordParser {
	p := &ChordParser{
		logger: logging.WithFields(logging.Fields{
			"component": "chord_parser",
		}),
	}
	if size > 0 {
		cache, err := lru.New[string, parseResult](size)
		if err != nil {
			p.logger.Error(err, "Failed to create parse cache, caching disabled")
		} else {
			p.cache = cache
		}
	}
	return p
}

// Parse resolves a single chord token. It reports false for empty tokens,
// section markers and anything without a recognisable root.
func (p *ChordParser) Parse(token string) (ParsedChord, bool) {
	if p.cache != nil {
		if res, ok := p.cache.Get(token); ok {
			return cloneChord(res.chord), res.ok
		}
	}

	chord, ok := ParseChord(token)

	if p.cache != nil {
		p.cache.Add(token, parseResult{chord: chord, ok: ok})
	}
	if !ok && token != "" && !IsSectionMarker(token) {
		p.logger.Debug("Unparseable chord token", logging.Fields{"token": token})
	}

	return cloneChord(chord), ok
}

// ParseChord resolves a single chord token without caching
func ParseChord(token string) (ParsedChord, bool) {
	symbol := strings.TrimSpace(token)
	if symbol == "" || IsSectionMarker(symbol) {
		return ParsedChord{}, false
	}

	if chord, ok := parseFullSymbol(symbol, token); ok {
		return chord, true
	}

	cleaned := symbolCleaner.Replace(symbol)
	if cleaned != symbol {
		if chord, ok := parseFullSymbol(cleaned, token); ok {
			return chord, true
		}
	}

	return parseFallback(cleaned, token)
}

// Helper functions

func parseFullSymbol(symbol, original string) (ParsedChord, bool) {
	m := chordSymbolRegex.FindStringSubmatch(symbol)
	if m == nil {
		return ParsedChord{}, false
	}

	root, ok := chroma.ParsePitchClass(m[1])
	if !ok {
		return ParsedChord{}, false
	}

	chordType := resolveChordType(m[2], m[3], m[4])
	chord := newParsedChord(root, chordType, original)

	if m[5] != "" {
		if bass, ok := chroma.ParsePitchClass(m[5]); ok {
			chord.Bass = bass
			chord.HasBass = true
		}
	}

	return chord, true
}

func parseFallback(symbol, original string) (ParsedChord, bool) {
	var rootName, quality, extension string

	if m := fallbackDigitsRegex.FindStringSubmatch(symbol); m != nil {
		rootName, extension = m[1], m[2]
	} else if m := fallbackQualityRegex.FindStringSubmatch(symbol); m != nil {
		rootName, quality, extension = m[1], m[2], m[3]
	} else if m := fallbackSymbolRegex.FindStringSubmatch(symbol); m != nil {
		rootName, quality = m[1], m[2]
	} else if m := fallbackRootRegex.FindStringSubmatch(symbol); m != nil {
		rootName = m[1]
	} else {
		return ParsedChord{}, false
	}

	root, ok := chroma.ParsePitchClass(rootName)
	if !ok {
		return ParsedChord{}, false
	}

	return newParsedChord(root, resolveChordType(quality, extension, ""), original), true
}

func newParsedChord(root chroma.PitchClass, chordType ChordType, original string) ParsedChord {
	quality := qualityTable[chordType]
	return ParsedChord{
		Root:          root,
		Bass:          root,
		ChordType:     chordType,
		Intervals:     slices.Clone(quality.Intervals),
		QualityFamily: quality.Family,
		Complexity:    quality.Complexity,
		Stability:     quality.Stability,
		Original:      original,
	}
}

func cloneChord(c ParsedChord) ParsedChord {
	c.Intervals = slices.Clone(c.Intervals)
	return c
}

// baseQuality maps a quality marker to a triad-level working type
func baseQuality(quality string) (base ChordType, majorMarker bool) {
	switch quality {
	case "M", "△", "Δ":
		return ChordMajor, true
	case "mM":
		return "minmaj", false
	case "m", "-":
		return ChordMinor, false
	case "°", "o":
		return ChordDiminished, false
	case "+":
		return ChordAugmented, false
	case "ø":
		return "hdim", false
	}

	switch strings.ToLower(quality) {
	case "maj":
		return ChordMajor, true
	case "min":
		return ChordMinor, false
	case "dim":
		return ChordDiminished, false
	case "aug":
		return ChordAugmented, false
	case "minmaj", "mmaj":
		return "minmaj", false
	case "sus", "sus4":
		return ChordSus4, false
	case "sus2":
		return ChordSus2, false
	}

	return ChordMajor, false
}

// resolveChordType combines quality, extension and alteration run into a
// chord type that is guaranteed to exist in the quality table
func resolveChordType(quality, extension, alterations string) ChordType {
	alterations = strings.ToLower(alterationFolder.Replace(alterations))

	// Power chords take precedence over everything else
	if strings.Contains(alterations, "no3") || extension == "5" {
		return ChordPower
	}

	base, majorMarker := baseQuality(quality)
	chordType := applyExtension(base, majorMarker, extension)

	if alterations != "" {
		chordType = applyAlterations(chordType, base, extension, alterations)
	}

	if resolved, ok := resolveAlias(chordType); ok {
		return resolved
	}
	if resolved, ok := resolveAlias(base); ok {
		return resolved
	}
	return ChordMajor
}

func applyExtension(base ChordType, majorMarker bool, extension string) ChordType {
	switch extension {
	case "":
		return base
	case "7", "9", "11", "13":
		if base == ChordMajor {
			if majorMarker {
				return ChordType("maj" + extension)
			}
			return ChordType("dom" + extension)
		}
		return ChordType(string(base) + extension)
	case "6":
		if base == ChordMajor {
			return ChordAdd6
		}
		return ChordMinor6
	case "6/9", "69":
		if base == ChordMajor {
			return "6/9"
		}
		return "min6add9"
	case "2":
		return ChordAdd2
	case "4":
		return ChordSus4
	default:
		return base
	}
}

// applyAlterations applies the highest priority recognised alteration
func applyAlterations(chordType, base ChordType, extension, alterations string) ChordType {
	hasSeventh := strings.Contains(string(chordType), "7") || extension == "7"

	switch {
	case strings.Contains(alterations, "sus4"):
		if strings.HasPrefix(string(chordType), "maj7") {
			return "maj7sus4"
		}
		if hasSeventh {
			return Chord7Sus4
		}
		return ChordSus4
	case strings.Contains(alterations, "sus2"):
		if strings.HasPrefix(string(chordType), "maj7") {
			return "maj7sus2"
		}
		if hasSeventh {
			return Chord7Sus2
		}
		return ChordSus2
	case strings.Contains(alterations, "add9"):
		if base == ChordMajor {
			return ChordAdd9
		}
		return ChordMinorAdd9
	case strings.Contains(alterations, "add6"):
		if base == ChordMajor {
			return ChordAdd6
		}
		return ChordMinor6
	case strings.Contains(alterations, "add2"):
		return ChordAdd2
	case strings.Contains(alterations, "add4"):
		return ChordAdd4
	case strings.Contains(alterations, "alt"):
		return Chord7Alt
	}

	// Compound dominant spellings such as 7b9b5 map straight onto the table
	if chordType == ChordDominant7 {
		if resolved, ok := resolveAlias(ChordType("7" + alterations)); ok {
			return resolved
		}
	}

	for _, alt := range []string{"b9", "#9", "b5", "#5", "#11"} {
		if strings.Contains(alterations, alt) {
			return alterChordType(chordType, alt)
		}
	}

	return chordType
}

// alterChordType folds a single altered tone into a working chord type
func alterChordType(chordType ChordType, alt string) ChordType {
	switch chordType {
	case "dom7", "dom9", "dom11":
		return ChordType("7" + alt)
	case "dom13":
		if alt == "b9" {
			return "13b9"
		}
		return ChordType("7" + alt)
	case ChordMajor:
		if alt == "#11" {
			return ChordAddSharp11
		}
		return chordType
	}

	if strings.Contains(string(chordType), "7") {
		return ChordType(strings.Replace(string(chordType), "7", "7"+alt, 1))
	}
	return chordType
}
