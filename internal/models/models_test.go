package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"speaker":   "calm_male.wav",
		"sd_steps":  30,
		"lora":      "<lora:inkwash:0.7>",
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["speaker"] != "calm_male.wav" {
		t.Errorf("expected speaker=calm_male.wav, got %v", result["speaker"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"mode": "story", "count": 3}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["mode"] != "story" {
		t.Errorf("expected mode=story, got %v", j["mode"])
	}

	if j["count"].(float64) != 3 {
		t.Errorf("expected count=3, got %v", j["count"])
	}
}

func TestJSONBScanNil(t *testing.T) {
	var j JSONB
	if err := j.Scan(nil); err != nil {
		t.Fatalf("failed to scan nil: %v", err)
	}
	if j != nil {
		t.Errorf("expected nil JSONB, got %v", j)
	}
}

func TestNarrationStatus(t *testing.T) {
	statuses := []NarrationStatus{
		NarrationStatusQueued,
		NarrationStatusWriting,
		NarrationStatusSynthesizing,
		NarrationStatusCompleted,
		NarrationStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestJobStatus(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusRunning,
		JobStatusSucceeded,
		JobStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}
