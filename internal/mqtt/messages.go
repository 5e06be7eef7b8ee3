package mqtt

import (
	"encoding/json"
	"time"
)

// FileSummary is the per-file message published after each analyzed file.
type FileSummary struct {
	RunID         string  `json:"run_id"`
	File          string  `json:"file"`
	Detections    int     `json:"detections"`
	TopLabel      string  `json:"top_label,omitempty"`
	TopConfidence float64 `json:"top_confidence,omitempty"`
}

// BatchSummary is published once when a batch run completes.
type BatchSummary struct {
	RunID       string    `json:"run_id"`
	Node        string    `json:"node"`
	Files       int       `json:"files"`
	Failed      int       `json:"failed"`
	Detections  int       `json:"detections"`
	Duration    string    `json:"duration"`
	CompletedAt time.Time `json:"completed_at"`
}

// Encode renders the summary as a JSON payload string.
func (s FileSummary) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Encode renders the summary as a JSON payload string.
func (s BatchSummary) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
