// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordResolutionBatch tests batch counters by result
func TestRecordResolutionBatch(t *testing.T) {
	success := testutil.ToFloat64(ResolutionBatches.WithLabelValues("success"))
	failure := testutil.ToFloat64(ResolutionBatches.WithLabelValues("error"))

	RecordResolutionBatch(120*time.Millisecond, nil)
	RecordResolutionBatch(3*time.Second, errors.New("connection refused"))
	RecordResolutionBatch(80*time.Millisecond, nil)

	if got := testutil.ToFloat64(ResolutionBatches.WithLabelValues("success")) - success; got != 2 {
		t.Errorf("Expected 2 successful batches, got %v", got)
	}
	if got := testutil.ToFloat64(ResolutionBatches.WithLabelValues("error")) - failure; got != 1 {
		t.Errorf("Expected 1 failed batch, got %v", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ResolutionCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(ResolutionCacheLookups.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)

	if got := testutil.ToFloat64(ResolutionCacheLookups.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(ResolutionCacheLookups.WithLabelValues("miss")) - misses; got != 2 {
		t.Errorf("Expected 2 misses, got %v", got)
	}
}

// TestRecordJobRun verifies the result label precedence: panic, error, success
func TestRecordJobRun(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		panicked bool
		result   string
	}{
		{name: "success", result: "success"},
		{name: "error", err: errors.New("boom"), result: "error"},
		{name: "panic wins over error", err: errors.New("recovered"), panicked: true, result: "panic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(JobRuns.WithLabelValues("test_job", tt.result))
			RecordJobRun("test_job", time.Millisecond, tt.err, tt.panicked)
			after := testutil.ToFloat64(JobRuns.WithLabelValues("test_job", tt.result))
			if after-before != 1 {
				t.Errorf("Expected %s counter to increase by 1, got %v", tt.result, after-before)
			}
		})
	}
}

func TestSetJobRunning(t *testing.T) {
	SetJobRunning("load_map", true)
	if got := testutil.ToFloat64(JobsRunning.WithLabelValues("load_map")); got != 1 {
		t.Errorf("Expected running gauge 1, got %v", got)
	}
	SetJobRunning("load_map", false)
	if got := testutil.ToFloat64(JobsRunning.WithLabelValues("load_map")); got != 0 {
		t.Errorf("Expected running gauge 0, got %v", got)
	}
}

func TestEngineCounters(t *testing.T) {
	events := testutil.ToFloat64(EngineEvents.WithLabelValues("track_started"))
	local := testutil.ToFloat64(CandidateSelections.WithLabelValues("local"))
	fallback := testutil.ToFloat64(CandidateFallbacks.WithLabelValues("no_coordinate"))

	RecordEngineEvent("track_started")
	RecordCandidateSelection("local")
	RecordCandidateFallback("no_coordinate")

	if testutil.ToFloat64(EngineEvents.WithLabelValues("track_started"))-events != 1 {
		t.Error("Expected engine event counter to increase")
	}
	if testutil.ToFloat64(CandidateSelections.WithLabelValues("local"))-local != 1 {
		t.Error("Expected local selection counter to increase")
	}
	if testutil.ToFloat64(CandidateFallbacks.WithLabelValues("no_coordinate"))-fallback != 1 {
		t.Error("Expected fallback counter to increase")
	}
}

// TestConcurrentMetricRecording checks that the recorders are safe to call
// from job goroutines and the event loop at once
func TestConcurrentMetricRecording(t *testing.T) {
	before := testutil.ToFloat64(ResolvedTracks.WithLabelValues("all_found"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordResolvedTrack("all_found")
				RecordNearestQuery(time.Microsecond)
				RecordIndexRebuild(time.Millisecond)
				RecordAPIRequest("GET", "/api/v1/status", "200", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(ResolvedTracks.WithLabelValues("all_found")) - before; got != 1000 {
		t.Errorf("Expected 1000 resolved tracks, got %v", got)
	}
}
