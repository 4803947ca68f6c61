package observability

import (
	"errors"
	"sort"
	"sync"

	"github.com/danmuck/mowerlink/internal/protocol/codec"
	"github.com/danmuck/mowerlink/internal/protocol/frame"
	"github.com/danmuck/mowerlink/internal/protocol/param"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionEncode = "encode"
	DirectionDecode = "decode"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mowerlink",
			Subsystem: "frame",
			Name:      "total",
			Help:      "Frames encoded or decoded.",
		},
		[]string{"direction", "msg_type"},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mowerlink",
			Subsystem: "frame",
			Name:      "errors_total",
			Help:      "Frames that failed to encode or decode.",
		},
		[]string{"direction", "kind"},
	)
	frameSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mowerlink",
			Subsystem: "frame",
			Name:      "size_bytes",
			Help:      "Encoded frame size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 14),
		},
		[]string{"direction"},
	)
)

// RegisterMetrics adds the frame collectors to the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{frames, frameErrors, frameSize}
}

func RecordFrame(direction string, msgType frame.MsgType, size int) {
	RegisterMetrics()
	frames.WithLabelValues(direction, msgType.String()).Inc()
	frameSize.WithLabelValues(direction).Observe(float64(size))
}

func RecordFrameError(direction string, err error) {
	RegisterMetrics()
	frameErrors.WithLabelValues(direction, ErrorKind(err)).Inc()
}

// ErrorKind buckets a protocol error into a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, frame.ErrCorruptFrame):
		return "checksum"
	case errors.Is(err, frame.ErrInvalidSentinel):
		return "sentinel"
	case errors.Is(err, frame.ErrShortHeader), errors.Is(err, codec.ErrTruncated):
		return "truncated"
	case errors.Is(err, frame.ErrPayloadTooLarge), errors.Is(err, param.ErrTooLarge), errors.Is(err, codec.ErrCountLimit):
		return "too_large"
	case errors.Is(err, param.ErrUnsupportedParam):
		return "unsupported_param"
	case errors.Is(err, param.ErrPayloadMismatch):
		return "payload_mismatch"
	case err == nil:
		return "none"
	default:
		return "other"
	}
}

// Stat is one counter sample.
type Stat struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Stats gathers the frame counters, sorted by name then labels.
func Stats() ([]Stat, error) {
	reg := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{frames, frameErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	var out []Stat
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := Stat{Name: mf.GetName(), Labels: map[string]string{}, Value: m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
