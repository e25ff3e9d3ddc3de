package rest

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"
)

// Timing holds the phase breakdown of a request. Phases that did not occur,
// such as DNS on a reused connection, stay zero.
type Timing struct {
	// StartTime is when the request was handed to the transport
	StartTime time.Time

	// DNSLookup is the time spent resolving the host
	DNSLookup time.Duration

	// TCPConnect is the time spent establishing the connection
	TCPConnect time.Duration

	// TLSHandshake is the time spent in the TLS handshake
	TLSHandshake time.Duration

	// TimeToFirstByte runs from the end of the last connection phase to the
	// first response byte
	TimeToFirstByte time.Duration

	// Total matches Result.Elapsed
	Total time.Duration

	// ConnectionReused is true when an idle connection was used
	ConnectionReused bool
}

// timingTrace collects Timing from httptrace callbacks.
type timingTrace struct {
	mu sync.Mutex
	t  Timing

	dnsStart, connectStart, tlsStart, lastPhaseEnd time.Time
}

func newTimingTrace() *timingTrace {
	return &timingTrace{}
}

func (tt *timingTrace) start(now time.Time) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.t.StartTime = now
	tt.lastPhaseEnd = now
}

func (tt *timingTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			tt.mu.Lock()
			tt.t.ConnectionReused = info.Reused
			tt.mu.Unlock()
		},
		DNSStart: func(httptrace.DNSStartInfo) {
			tt.mu.Lock()
			tt.dnsStart = time.Now()
			tt.mu.Unlock()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			tt.mu.Lock()
			now := time.Now()
			tt.t.DNSLookup = now.Sub(tt.dnsStart)
			tt.lastPhaseEnd = now
			tt.mu.Unlock()
		},
		ConnectStart: func(network, addr string) {
			tt.mu.Lock()
			if tt.connectStart.IsZero() {
				tt.connectStart = time.Now()
			}
			tt.mu.Unlock()
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				return
			}
			tt.mu.Lock()
			now := time.Now()
			tt.t.TCPConnect = now.Sub(tt.connectStart)
			tt.lastPhaseEnd = now
			tt.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			tt.mu.Lock()
			tt.tlsStart = time.Now()
			tt.mu.Unlock()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err != nil {
				return
			}
			tt.mu.Lock()
			now := time.Now()
			tt.t.TLSHandshake = now.Sub(tt.tlsStart)
			tt.lastPhaseEnd = now
			tt.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			tt.mu.Lock()
			tt.t.TimeToFirstByte = time.Since(tt.lastPhaseEnd)
			tt.mu.Unlock()
		},
	}
}

func (tt *timingTrace) finish(total time.Duration) *Timing {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	t := tt.t
	t.Total = total
	return &t
}
