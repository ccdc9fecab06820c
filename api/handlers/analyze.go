package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/gin-gonic/gin"
)

// AnalyzeRequest is the body of POST /v1/analyze
type AnalyzeRequest struct {
	Chords string `json:"chords"`
	Key    string `json:"key,omitempty"`
}

// BatchRequest is the body of POST /v1/analyze/batch
type BatchRequest struct {
	Songs []analysis.Song `json:"songs"`
}

// BatchResponse is the reply of POST /v1/analyze/batch
type BatchResponse struct {
	Results []analysis.SongResult `json:"results"`
	Summary analysis.BatchSummary `json:"summary"`
}

// CompareRequest is the body of POST /v1/compare
type CompareRequest struct {
	ChordsA string `json:"chords_a"`
	ChordsB string `json:"chords_b"`
}

// CompareResponse is the reply of POST /v1/compare
type CompareResponse struct {
	A          analysis.Result               `json:"a"`
	B          analysis.Result               `json:"b"`
	Similarity *fingerprint.SimilarityResult `json:"similarity"`
}

// AnalyzeHandler serves chord progression analysis
type AnalyzeHandler struct {
	analyzer      *analysis.Analyzer
	processor     *analysis.BatchProcessor
	comparator    *fingerprint.FingerprintComparator
	maxBatchSongs int
	logger        logging.Logger
}

// NewAnalyzeHandler creates an analyze handler. maxBatchSongs <= 0 removes
// the batch size limit.
func NewAnalyzeHandler(analyzer *analysis.Analyzer, processor *analysis.BatchProcessor, comparator *fingerprint.FingerprintComparator, maxBatchSongs int) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:      analyzer,
		processor:     processor,
		comparator:    comparator,
		maxBatchSongs: maxBatchSongs,
		logger: logging.WithFields(logging.Fields{
			"component": "analyze_handler",
		}),
	}
}

// Analyze handles POST /v1/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	c.JSON(http.StatusOK, h.analyzer.AnalyzeWithKey(req.Chords, req.Key))
}

// AnalyzeBatch handles POST /v1/analyze/batch
func (h *AnalyzeHandler) AnalyzeBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if len(req.Songs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "songs must not be empty"})
		return
	}
	if h.maxBatchSongs > 0 && len(req.Songs) > h.maxBatchSongs {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("batch of %d songs exceeds the limit of %d", len(req.Songs), h.maxBatchSongs),
		})
		return
	}

	results, summary, err := h.processor.Process(c.Request.Context(), req.Songs, nil)
	if err != nil {
		if errors.Is(err, analysis.ErrNoRecords) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithContext(c.Request.Context()).Warn("Batch request interrupted", logging.Fields{
			"run_id":    summary.RunID,
			"processed": summary.Processed,
			"error":     err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, BatchResponse{Results: results, Summary: summary})
}

// Compare handles POST /v1/compare
func (h *AnalyzeHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	a := h.analyzer.Analyze(req.ChordsA)
	b := h.analyzer.Analyze(req.ChordsB)

	similarity, err := h.comparator.Compare(a.HarmonicFingerprint, b.HarmonicFingerprint)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fingerprint.ErrEmptyFingerprint) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, CompareResponse{A: a, B: b, Similarity: similarity})
}
