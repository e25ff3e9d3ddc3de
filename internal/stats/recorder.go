// Package stats aggregates request latencies with HDR histograms.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/amdevit/restling/rest"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Recorder collects latencies of completed requests. It implements
// rest.Observer.
//
// Recorder is safe for concurrent use. Counters are atomic and histograms
// are mutex protected.
type Recorder struct {
	latency   *hdrhistogram.Histogram
	perMethod map[string]*hdrhistogram.Histogram
	mu        sync.Mutex

	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64
	bytes   atomic.Int64

	statusMu sync.Mutex
	statuses map[int]int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		latency:   hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		perMethod: make(map[string]*hdrhistogram.Histogram),
		statuses:  make(map[int]int64),
	}
}

// Observe records res.
func (r *Recorder) Observe(req *rest.Request, res *rest.Result) {
	method := ""
	if req != nil {
		method, _ = req.Verb()
	}
	r.Record(method, res.Elapsed(), res.StatusCode(), res.IsSuccessful(), int64(len(res.RawContent())))
}

// Record adds one sample. A zero status means no response was received.
func (r *Recorder) Record(method string, elapsed time.Duration, status int, success bool, bytes int64) {
	micros := clamp(elapsed.Microseconds())

	r.mu.Lock()
	r.latency.RecordValue(micros)
	if method != "" {
		h, ok := r.perMethod[method]
		if !ok {
			h = hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
			r.perMethod[method] = h
		}
		h.RecordValue(micros)
	}
	r.mu.Unlock()

	r.total.Add(1)
	if success {
		r.success.Add(1)
	} else {
		r.failed.Add(1)
	}
	r.bytes.Add(bytes)

	r.statusMu.Lock()
	r.statuses[status]++
	r.statusMu.Unlock()
}

func clamp(micros int64) int64 {
	if micros < histogramMin {
		return histogramMin
	}
	if micros > histogramMax {
		return histogramMax
	}
	return micros
}

// Latency is a percentile digest.
type Latency struct {
	Min  time.Duration `json:"min" yaml:"min"`
	Max  time.Duration `json:"max" yaml:"max"`
	Mean time.Duration `json:"mean" yaml:"mean"`
	P50  time.Duration `json:"p50" yaml:"p50"`
	P90  time.Duration `json:"p90" yaml:"p90"`
	P95  time.Duration `json:"p95" yaml:"p95"`
	P99  time.Duration `json:"p99" yaml:"p99"`
}

// Summary is a snapshot of the recorder.
type Summary struct {
	Total    int64              `json:"total" yaml:"total"`
	Success  int64              `json:"success" yaml:"success"`
	Failed   int64              `json:"failed" yaml:"failed"`
	Bytes    int64              `json:"bytes" yaml:"bytes"`
	Latency  Latency            `json:"latency" yaml:"latency"`
	Methods  map[string]Latency `json:"methods,omitempty" yaml:"methods,omitempty"`
	Statuses map[int]int64      `json:"statuses" yaml:"statuses"`
}

// SuccessRate returns Success/Total, or 0 without samples.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// StatusCodes returns the recorded statuses in ascending order.
func (s Summary) StatusCodes() []int {
	codes := make([]int, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Summary returns a snapshot.
func (r *Recorder) Summary() Summary {
	s := Summary{
		Total:    r.total.Load(),
		Success:  r.success.Load(),
		Failed:   r.failed.Load(),
		Bytes:    r.bytes.Load(),
		Methods:  make(map[string]Latency),
		Statuses: make(map[int]int64),
	}

	r.mu.Lock()
	s.Latency = digest(r.latency)
	for method, h := range r.perMethod {
		s.Methods[method] = digest(h)
	}
	r.mu.Unlock()

	r.statusMu.Lock()
	for code, n := range r.statuses {
		s.Statuses[code] = n
	}
	r.statusMu.Unlock()

	return s
}

func digest(h *hdrhistogram.Histogram) Latency {
	if h.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Min:  us(h.Min()),
		Max:  us(h.Max()),
		Mean: us(int64(h.Mean())),
		P50:  us(h.ValueAtQuantile(50)),
		P90:  us(h.ValueAtQuantile(90)),
		P95:  us(h.ValueAtQuantile(95)),
		P99:  us(h.ValueAtQuantile(99)),
	}
}
