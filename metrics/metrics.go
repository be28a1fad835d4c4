// Package metrics counts what a client did: requests built, signed and sent,
// and how they failed.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Metrics collects client counters. Counter updates are atomic; latency is
// guarded by mu.
type Metrics struct {
	mu sync.RWMutex

	requestsBuilt   int64
	requestsSigned  int64
	presigned       int64
	requestsSent    int64
	serviceErrors   int64
	decodeErrors    int64
	transportErrors int64

	roundTripTime time.Duration // total time spent in the transport
	startTime     time.Time
}

// NewMetrics creates a Metrics instance starting now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordBuilt counts a request produced by the builder.
func (m *Metrics) RecordBuilt() { atomic.AddInt64(&m.requestsBuilt, 1) }

// RecordSigned counts a header-signed request.
func (m *Metrics) RecordSigned() { atomic.AddInt64(&m.requestsSigned, 1) }

// RecordPresigned counts a query-signed request.
func (m *Metrics) RecordPresigned() { atomic.AddInt64(&m.presigned, 1) }

// RecordSent counts a request that got a response.
func (m *Metrics) RecordSent() { atomic.AddInt64(&m.requestsSent, 1) }

// RecordServiceError counts a response classified as a service error.
func (m *Metrics) RecordServiceError() { atomic.AddInt64(&m.serviceErrors, 1) }

// RecordDecodeError counts a success response that failed to decode.
func (m *Metrics) RecordDecodeError() { atomic.AddInt64(&m.decodeErrors, 1) }

// RecordTransportError counts a request that never got a response.
func (m *Metrics) RecordTransportError() { atomic.AddInt64(&m.transportErrors, 1) }

// RecordRoundTrip adds the duration of one transport call.
func (m *Metrics) RecordRoundTrip(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundTripTime += d
}

// Report is a snapshot of the counters.
type Report struct {
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	RequestsBuilt   int64         `json:"requestsBuilt"`
	RequestsSigned  int64         `json:"requestsSigned"`
	Presigned       int64         `json:"presigned"`
	RequestsSent    int64         `json:"requestsSent"`
	ServiceErrors   int64         `json:"serviceErrors"`
	DecodeErrors    int64         `json:"decodeErrors"`
	TransportErrors int64         `json:"transportErrors"`
	MeanRoundTrip   time.Duration `json:"meanRoundTrip"`
	Duration        time.Duration `json:"duration"`
}

// GenerateReport snapshots the counters.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()

	sent := atomic.LoadInt64(&m.requestsSent)
	m.mu.RLock()
	total := m.roundTripTime
	m.mu.RUnlock()
	var mean time.Duration
	if sent > 0 {
		mean = total / time.Duration(sent)
	}

	return Report{
		StartTime:       m.startTime,
		EndTime:         endTime,
		RequestsBuilt:   atomic.LoadInt64(&m.requestsBuilt),
		RequestsSigned:  atomic.LoadInt64(&m.requestsSigned),
		Presigned:       atomic.LoadInt64(&m.presigned),
		RequestsSent:    sent,
		ServiceErrors:   atomic.LoadInt64(&m.serviceErrors),
		DecodeErrors:    atomic.LoadInt64(&m.decodeErrors),
		TransportErrors: atomic.LoadInt64(&m.transportErrors),
		MeanRoundTrip:   mean,
		Duration:        endTime.Sub(m.startTime),
	}
}

// MarshalJSON renders durations as strings.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		MeanRoundTrip string `json:"meanRoundTrip"`
		Duration      string `json:"duration"`
	}{
		Alias:         Alias(r),
		MeanRoundTrip: r.MeanRoundTrip.String(),
		Duration:      r.Duration.String(),
	})
}

func (r Report) String() string {
	return fmt.Sprintf(
		"Requests built: %d, signed: %d, presigned: %d, sent: %d\n"+
			"Errors: %d service, %d decode, %d transport\n"+
			"Mean round trip: %s over %s",
		r.RequestsBuilt, r.RequestsSigned, r.Presigned, r.RequestsSent,
		r.ServiceErrors, r.DecodeErrors, r.TransportErrors,
		r.MeanRoundTrip, r.Duration,
	)
}
