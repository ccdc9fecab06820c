package analysis

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/algorithms/tonal"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

// Sentinel outputs for records the core cannot analyse
const (
	NoHarmonyKey      = "No Harmony Data"
	NoHarmonyNumerals = "empty"

	ParseErrorKey      = "Parse Error"
	ParseErrorNumerals = "parse_error"

	AnalysisErrorKey      = "Analysis Error"
	AnalysisErrorNumerals = "error"
)

// OverrideMethod marks key results taken from a caller-supplied key
const OverrideMethod = "override"

// Status describes how a record was handled
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoHarmony     Status = "no_harmony"
	StatusParseError    Status = "parse_error"
	StatusAnalysisError Status = "analysis_error"
)

// Result holds the derived harmonic fields of one chords string
type Result struct {
	Key                 string           `json:"key"`
	RelativeKey         string           `json:"relative_key,omitempty"`
	RomanNumerals       string           `json:"roman_numerals"`
	HarmonicFingerprint string           `json:"harmonic_fingerprint"`
	Tokens              []string         `json:"tokens"`
	Confidence          float64          `json:"confidence"`
	Status              Status           `json:"status"`
	Error               string           `json:"error,omitempty"`
	Detail              *tonal.KeyResult `json:"detail,omitempty"`
}

// AnalyzerConfig holds configuration for the analysis pipeline
type AnalyzerConfig struct {
	ParserCacheSize   int                            `json:"parser_cache_size"`
	KeyCacheSize      int                            `json:"key_cache_size"`
	CorrelationMethod stats.CorrelationMethod        `json:"correlation_method"`
	FunctionalBlend   float64                        `json:"functional_blend"`
	SectionWeights    []tonal.SectionWeight          `json:"section_weights,omitempty"`
	Fingerprint       *fingerprint.FingerprintConfig `json:"fingerprint"`
	IncludeDetail     bool                           `json:"include_detail"`
}

// DefaultAnalyzerConfig returns default analyzer configuration
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		ParserCacheSize:   tonal.DefaultParserCacheSize,
		KeyCacheSize:      tonal.DefaultKeyCacheSize,
		CorrelationMethod: stats.TimeDomain,
		FunctionalBlend:   0.3,
		Fingerprint:       fingerprint.DefaultFingerprintConfig(),
	}
}

// Analyzer runs the full chain for one chords string: extract tokens, detect
// the key, then derive Roman numerals and the harmonic fingerprint.
// An Analyzer is safe for concurrent use.
type Analyzer struct {
	config    *AnalyzerConfig
	parser    *tonal.ChordParser
	detector  *tonal.KeyDetector
	generator *tonal.RomanNumeralGenerator
	encoder   *fingerprint.HUVEncoder
	logger    logging.Logger
}

// NewAnalyzer creates a new analyzer with configuration
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = DefaultAnalyzerConfig()
	}

	parser := tonal.NewChordParserWithCache(config.ParserCacheSize)

	params := tonal.DefaultKeyDetectorParams()
	params.Method = config.CorrelationMethod
	params.FunctionalBlend = config.FunctionalBlend
	params.CacheSize = config.KeyCacheSize
	if config.SectionWeights != nil {
		params.SectionWeights = config.SectionWeights
	}

	return &Analyzer{
		config:    config,
		parser:    parser,
		detector:  tonal.NewKeyDetectorWithParams(parser, params),
		generator: tonal.NewRomanNumeralGenerator(parser),
		encoder:   fingerprint.NewHUVEncoder(config.Fingerprint),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}
}

// Analyze derives key, Roman numerals and fingerprint from a chords string
func (a *Analyzer) Analyze(chords string) Result {
	return a.AnalyzeWithKey(chords, "")
}

// AnalyzeWithKey is Analyze with an optional known key such as "A minor".
// A key that parses replaces detection; an unparseable one is ignored.
// It never panics: internal failures map to the Analysis Error sentinel.
func (a *Analyzer) AnalyzeWithKey(chords, keyOverride string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panic: %v", r)
			a.logger.Error(err, "Recovered from analysis failure", logging.Fields{
				"chords_length": len(chords),
			})
			result = sentinelResult(StatusAnalysisError, err.Error())
		}
	}()

	if strings.TrimSpace(chords) == "" {
		return sentinelResult(StatusNoHarmony, "")
	}

	tokens := transcode.ExtractSequence(chords)
	if len(tokens) == 0 {
		a.logger.Debug("No tokens extracted", logging.Fields{
			"chords": chords,
		})
		return sentinelResult(StatusParseError, "")
	}

	keyResult := a.resolveKey(tokens, keyOverride)
	numerals := a.generator.Generate(tokens, keyResult.Key, keyResult.IsMajor)
	relTonic, relMajor := tonal.RelativeKey(keyResult.Key, keyResult.IsMajor)

	result = Result{
		Key:                 keyResult.KeyName,
		RelativeKey:         tonal.FormatKey(relTonic, relMajor),
		RomanNumerals:       transcode.JoinNumerals(numerals),
		HarmonicFingerprint: a.encoder.Encode(tokens),
		Tokens:              tokens,
		Confidence:          keyResult.Confidence,
		Status:              StatusOK,
	}
	if a.config.IncludeDetail {
		result.Detail = &keyResult
	}

	return result
}

func (a *Analyzer) resolveKey(tokens []string, keyOverride string) tonal.KeyResult {
	if strings.TrimSpace(keyOverride) != "" {
		tonic, isMajor, err := tonal.ParseKey(keyOverride)
		if err == nil {
			return tonal.KeyResult{
				Key:        tonic,
				IsMajor:    isMajor,
				KeyName:    tonal.FormatKey(tonic, isMajor),
				Confidence: 1,
				Method:     OverrideMethod,
			}
		}
		a.logger.Warn("Ignoring unparseable key override", logging.Fields{
			"key":   keyOverride,
			"error": err.Error(),
		})
	}

	return a.detector.Detect(tokens)
}

func sentinelResult(status Status, errMsg string) Result {
	result := Result{
		Status: status,
		Error:  errMsg,
		Tokens: []string{},
	}

	switch status {
	case StatusNoHarmony:
		result.Key = NoHarmonyKey
		result.RomanNumerals = NoHarmonyNumerals
	case StatusParseError:
		result.Key = ParseErrorKey
		result.RomanNumerals = ParseErrorNumerals
	default:
		result.Key = AnalysisErrorKey
		result.RomanNumerals = AnalysisErrorNumerals
	}

	return result
}
