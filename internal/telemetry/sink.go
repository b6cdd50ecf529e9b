// Package telemetry implements a fire-and-forget domain.DecisionLogSink:
// every ranked candidate's decision record is queued and drained by a
// background goroutine rather than logged on the caller's goroutine, so a
// slow log writer or metrics backend never adds latency to DiscoverTools/
// DiscoverCapabilities. Structured logging uses zerolog (the same library
// the teacher reaches for throughout its executor and storage layers);
// the buffered-queue-plus-background-drain shape is carried over from the
// teacher's ClickHouseLogger.
package telemetry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/toolgraph/shgat/internal/domain"
)

const defaultQueueSize = 256

// Config configures a Sink. Every field is optional: a zero-value Config
// logs at zerolog's global level via the global logger and only logs,
// recording no metric and broadcasting to no subscriber.
type Config struct {
	// Logger overrides the global zerolog logger. Zero value uses
	// github.com/rs/zerolog/log's package-level logger, matching the
	// teacher's factory.go/node_executors.go usage.
	Logger *zerolog.Logger

	// Metrics, when set, receives one RecordMetric call per drained
	// record (metric name "discovery.<algorithm>.score").
	Metrics domain.MetricsRepository

	// QueueSize bounds the number of records buffered between Log and
	// the background drain goroutine. Defaults to 256.
	QueueSize int
}

// Sink is a domain.DecisionLogSink. Construct with New, and Close it on
// shutdown to drain the queue and stop the background goroutine.
type Sink struct {
	logger  zerolog.Logger
	metrics domain.MetricsRepository

	queue chan domain.DecisionLogRecord

	mu   sync.RWMutex
	subs map[chan domain.DecisionLogRecord]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Sink and starts its background drain goroutine.
func New(cfg Config) *Sink {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		logger:  logger,
		metrics: cfg.Metrics,
		queue:   make(chan domain.DecisionLogRecord, size),
		subs:    make(map[chan domain.DecisionLogRecord]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

// Log implements domain.DecisionLogSink. It never blocks the caller: a
// full queue drops the record and logs a warning instead of applying
// backpressure to the discovery path that produced it.
func (s *Sink) Log(_ context.Context, record domain.DecisionLogRecord) {
	select {
	case s.queue <- record:
	default:
		s.logger.Warn().
			Str("algorithm", record.Algorithm).
			Str("targetId", record.TargetID).
			Msg("telemetry queue full, dropping decision-log record")
	}
}

// Subscribe registers a channel that receives every drained record after
// this call, for a /ws/telemetry-style fan-out. The returned func
// unsubscribes; callers must call it to avoid leaking the channel.
func (s *Sink) Subscribe(buffer int) (<-chan domain.DecisionLogRecord, func()) {
	if buffer <= 0 {
		buffer = defaultQueueSize
	}
	ch := make(chan domain.DecisionLogRecord, buffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
		close(ch)
	}
}

// Close stops the background drain goroutine once the queue empties.
// Records drained after Close reach RecordMetric with the sink's
// already-cancelled context.
func (s *Sink) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sink) drain() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			// Emit whatever is still queued before stopping.
			for {
				select {
				case rec := <-s.queue:
					s.emit(rec)
				default:
					return
				}
			}
		case rec := <-s.queue:
			s.emit(rec)
		}
	}
}

func (s *Sink) emit(rec domain.DecisionLogRecord) {
	event := s.logger.Info()
	if rec.Decision == domain.DecisionRejected {
		event = s.logger.Warn()
	}
	event.
		Str("algorithm", rec.Algorithm).
		Str("mode", string(rec.Mode)).
		Str("targetType", string(rec.TargetType)).
		Str("targetId", rec.TargetID).
		Str("intent", rec.Intent).
		Float64("score", rec.FinalScore).
		Str("decision", string(rec.Decision)).
		Str("reason", rec.Reason).
		Msg("discovery decision")

	if s.metrics != nil {
		metadata := map[string]any{
			"targetType": string(rec.TargetType),
			"decision":   string(rec.Decision),
			"mode":       string(rec.Mode),
		}
		if err := s.metrics.RecordMetric(s.ctx, "discovery."+rec.Algorithm+".score", rec.FinalScore, metadata, rec.Timestamp); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record discovery metric")
		}
	}

	s.broadcast(rec)
}

func (s *Sink) broadcast(rec domain.DecisionLogRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- rec:
		default:
			s.logger.Warn().Msg("telemetry subscriber channel full, dropping record")
		}
	}
}
