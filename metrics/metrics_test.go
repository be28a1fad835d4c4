package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestMetricsHappyPath(t *testing.T) {
	m := NewMetrics()

	m.RecordBuilt()
	m.RecordBuilt()
	m.RecordSigned()
	m.RecordPresigned()
	m.RecordSent()
	m.RecordSent()
	m.RecordServiceError()
	m.RecordDecodeError()
	m.RecordTransportError()
	m.RecordRoundTrip(10 * time.Millisecond)
	m.RecordRoundTrip(30 * time.Millisecond)

	report := m.GenerateReport()

	if report.RequestsBuilt != 2 {
		t.Errorf("expected 2 requests built, got %d", report.RequestsBuilt)
	}
	if report.RequestsSigned != 1 || report.Presigned != 1 {
		t.Errorf("expected 1 signed and 1 presigned, got %d and %d", report.RequestsSigned, report.Presigned)
	}
	if report.RequestsSent != 2 {
		t.Errorf("expected 2 requests sent, got %d", report.RequestsSent)
	}
	if report.ServiceErrors != 1 || report.DecodeErrors != 1 || report.TransportErrors != 1 {
		t.Errorf("expected one error of each kind, got %+v", report)
	}
	if report.MeanRoundTrip != 20*time.Millisecond {
		t.Errorf("expected 20ms mean round trip, got %v", report.MeanRoundTrip)
	}
	if report.EndTime.Before(report.StartTime) {
		t.Errorf("expected end after start, got %v and %v", report.StartTime, report.EndTime)
	}

	if str := report.String(); !strings.Contains(str, "sent: 2") {
		t.Errorf("expected summary to mention sent requests, got %q", str)
	}
}

func TestReportJSON(t *testing.T) {
	m := NewMetrics()
	m.RecordSent()
	m.RecordRoundTrip(1500 * time.Millisecond)

	data, err := json.Marshal(m.GenerateReport())
	if err != nil {
		t.Fatalf("failed to marshal report: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal report: %v", err)
	}
	if decoded["meanRoundTrip"] != "1.5s" {
		t.Errorf("expected meanRoundTrip 1.5s, got %v", decoded["meanRoundTrip"])
	}
	if decoded["requestsSent"] != float64(1) {
		t.Errorf("expected requestsSent 1, got %v", decoded["requestsSent"])
	}
	if _, ok := decoded["duration"].(string); !ok {
		t.Errorf("expected duration as a string, got %v", decoded["duration"])
	}
}

func TestNoRequestsMeanIsZero(t *testing.T) {
	if got := NewMetrics().GenerateReport().MeanRoundTrip; got != 0 {
		t.Errorf("expected zero mean, got %v", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSigned()
			m.RecordRoundTrip(time.Millisecond)
		}()
	}
	wg.Wait()
	if got := m.GenerateReport().RequestsSigned; got != 50 {
		t.Errorf("expected 50 signed, got %d", got)
	}
}
