package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/spx-greeks-api/internal/pipeline"
	"github.com/dgnsrekt/spx-greeks-api/internal/regime"
)

// Streamer periodically runs the all-expirations exposure pipeline and
// broadcasts the snapshot to every connected client.
type Streamer struct {
	hub      *Hub
	pipeline *pipeline.Pipeline
	encoder  *Encoder
	interval time.Duration
	logger   *zap.Logger
}

func NewStreamer(hub *Hub, p *pipeline.Pipeline, interval time.Duration, logger *zap.Logger) (*Streamer, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}

	return &Streamer{
		hub:      hub,
		pipeline: p,
		encoder:  enc,
		interval: interval,
		logger:   logger,
	}, nil
}

// Run starts the streaming loop. Call in a goroutine.
// Returns when context is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	// Align first tick to top of second for predictable timing
	now := time.Now()
	nextSecond := now.Truncate(time.Second).Add(time.Second)

	select {
	case <-ctx.Done():
		s.encoder.Close()
		return
	case <-time.After(time.Until(nextSecond)):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("streamer started",
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("streamer stopping")
			s.encoder.Close()
			return

		case <-ticker.C:
			s.broadcastNext(ctx)
		}
	}
}

// broadcastNext runs one pipeline pass and broadcasts the result. The
// pipeline reads through the shared cache, so an idle TTL window costs a
// single upstream round trip regardless of subscriber count.
func (s *Streamer) broadcastNext(ctx context.Context) {
	if s.hub.ClientCount() == 0 {
		return
	}

	resp, err := s.pipeline.Exposures(ctx, pipeline.ExpirationAll, regime.VIXAuto)
	if err != nil {
		s.logger.Warn("stream pipeline pass failed", zap.Error(err))
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal snapshot", zap.Error(err))
		return
	}

	compressed := s.encoder.Encode(payload)
	s.hub.Broadcast(&Snapshot{JSON: payload, Compressed: compressed})

	s.logger.Debug("broadcast snapshot",
		zap.Int("clients", s.hub.ClientCount()),
		zap.Int("jsonSize", len(payload)),
		zap.Int("compressedSize", len(compressed)),
	)
}
