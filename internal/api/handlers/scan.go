package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
	"github.com/mdthewzrd/chartscan/pkg/logger"
)

// ScanHandler exposes the scan pipeline over HTTP.
type ScanHandler struct {
	runner *pipeline.Runner
	logger *logger.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(runner *pipeline.Runner, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		runner: runner,
		logger: log,
	}
}

// ScanRequest is the wire form of a scan spec. Dates arrive as
// YYYY-MM-DD strings and the timeout in milliseconds.
type ScanRequest struct {
	Pattern       string             `json:"pattern"`
	OutputStart   string             `json:"output_start"`
	OutputEnd     string             `json:"output_end"`
	LookbackDays  int                `json:"lookback_days"`
	ExclusionDays int                `json:"exclusion_days"`
	Thresholds    map[string]float64 `json:"thresholds,omitempty"`
	FetchWorkers  int                `json:"max_fetch_workers,omitempty"`
	DetectWorkers int                `json:"max_detect_workers,omitempty"`
	TimeoutMS     int64              `json:"timeout_ms,omitempty"`
}

// Spec converts the request into a scan spec. Date parse failures are
// reported as invalid-spec errors so callers get one error family.
func (req *ScanRequest) Spec() (*contracts.ScanSpec, error) {
	start, err := time.Parse("2006-01-02", req.OutputStart)
	if err != nil {
		return nil, errors.Join(contracts.ErrInvalidSpec, err)
	}
	end, err := time.Parse("2006-01-02", req.OutputEnd)
	if err != nil {
		return nil, errors.Join(contracts.ErrInvalidSpec, err)
	}

	spec := &contracts.ScanSpec{
		PatternID:        req.Pattern,
		OutputStart:      start,
		OutputEnd:        end,
		LookbackDays:     req.LookbackDays,
		ExclusionDays:    req.ExclusionDays,
		Thresholds:       req.Thresholds,
		MaxFetchWorkers:  req.FetchWorkers,
		MaxDetectWorkers: req.DetectWorkers,
		Timeout:          time.Duration(req.TimeoutMS) * time.Millisecond,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Run executes a scan and returns its full result.
// POST /api/v1/scan
func (h *ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	spec, err := req.Spec()
	if err != nil {
		h.logger.WithError(err).Warn("Scan request rejected")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.runner.RunScan(ctx, spec)

	status := http.StatusOK
	switch result.Status {
	case contracts.StatusError:
		status = http.StatusInternalServerError
	case contracts.StatusCancelled:
		// Client went away or the run budget expired; the partial
		// diagnostics are still worth returning.
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// Patterns lists the pattern IDs available for scanning.
// GET /api/v1/patterns
func (h *ScanHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"patterns": h.runner.Patterns(),
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
