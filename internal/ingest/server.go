// Package ingest accepts statsd lines over UDP and replays them into a
// stats backend, so processes that only speak statsd can still publish.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/neox5/statbox/internal/stats"
)

// Server listens for statsd packets on a UDP address.
type Server struct {
	addr          string
	maxPacketSize int
	sink          stats.Stats
	logger        *slog.Logger

	conn net.PacketConn
}

// New creates a server forwarding every parsed line to sink.
func New(addr string, maxPacketSize int, sink stats.Stats) *Server {
	return &Server{
		addr:          addr,
		maxPacketSize: maxPacketSize,
		sink:          sink,
		logger:        slog.Default().With("component", "ingest"),
	}
}

// Listen binds the UDP socket.
func (s *Server) Listen() error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP socket: %w", err)
	}
	s.conn = conn
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Start binds the socket if needed and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.conn == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.Serve(ctx)
}

// Serve reads packets until ctx is cancelled. Listen must have been called.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("ingest listening", "addr", s.conn.LocalAddr().String())

	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	buf := make([]byte, s.maxPacketSize)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("ingest shutdown complete")
				return nil
			}
			s.logger.Warn("failed to read packet", "error", err)
			continue
		}

		s.handlePacket(string(buf[:n]))
	}
}

func (s *Server) handlePacket(packet string) {
	for raw := range strings.SplitSeq(packet, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		line, err := ParseLine(raw)
		if err != nil {
			s.logger.Debug("dropping malformed line", "line", raw, "error", err)
			continue
		}

		s.apply(line)
	}
}

func (s *Server) apply(line Line) {
	switch line.Kind {
	case KindCounter:
		if line.Count < 0 {
			s.sink.Decr(line.Name, -line.Count, line.Rate)
			return
		}
		s.sink.Incr(line.Name, line.Count, line.Rate)
	case KindGauge:
		if line.Integral {
			s.sink.GaugeInt(line.Name, line.Count, line.Rate, line.Delta)
			return
		}
		s.sink.Gauge(line.Name, line.Value, line.Rate, line.Delta)
	case KindTiming:
		s.sink.Timing(line.Name, line.Duration())
	}
}
