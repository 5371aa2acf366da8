package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManagerWithCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithPrometheusRegistry(reg),
		WithNamespace("test"),
		WithSubsystem("scoring"),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metrics on custom registry")
	}
}

func TestGlobalHelpersDoNotPanic(t *testing.T) {
	RecordReportVerified()
	RecordVerificationFailure("signature")
	RecordReplayRejected()
	RecordScorePublished(720)
	RecordComponentScore("infrastructure", 0.95)
	RecordPenalty("clock_drift")
	RecordCycleDuration(1.25)
	UpdateServersScored(12)
	RecordCollectorRequest("reports", 0.05)
	RecordCollectorError("reports")
	UpdateQueueSize(3)
	UpdateQueueCapacity(1000)
	UpdateQueueUtilization(0.003)
	RecordQueueEnqueue()
	RecordQueueDequeue()
	RecordQueueDrop()
	UpdateWorkerActive(4)
	RecordWorkerProcessingLatency(2.5)
	RecordWorkerError()
	UpdateRegistryRecords(12)
	RecordRegistrySnapshotDuration(0.4)
	RecordRegistrySnapshot()
	RecordHTTPRequest("/api/scores", "GET", "200")
	RecordHTTPRequestDuration("/api/scores", "GET", 0.002)
	RecordErrorByComponent("worker", "scoring")
}

func TestGetRegistry(t *testing.T) {
	if GetRegistry() == nil {
		t.Fatal("global registry is nil")
	}
}
