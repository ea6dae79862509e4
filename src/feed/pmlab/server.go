// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package pmlab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

var errServerClosed = errors.New("server is closed")

// Generator produces simulated channel samples.
type Generator interface {
	// Generate returns n samples for each channel, the first one being the
	// sample at index offset since the connection started.
	Generate(channels []uint32, rate uint32, offset uint64, n int) []DataPoints
}

// SineGenerator emits a sine wave per channel, each channel phase shifted by
// an eighth of a period from the previous id. The digital value is set while
// the wave is above its midpoint.
type SineGenerator struct {
	Amplitude float64
	Frequency float64
	Offset    float64
}

// Generate implements Generator.
func (g SineGenerator) Generate(channels []uint32, rate uint32, offset uint64, n int) []DataPoints {
	out := make([]DataPoints, len(channels))
	for c, id := range channels {
		phase := float64(id) * math.Pi / 4
		dp := DataPoints{
			Analog:  make([]float64, n),
			Digital: make([]bool, n),
		}
		for i := 0; i < n; i++ {
			t := float64(offset+uint64(i)) / float64(rate)
			s := math.Sin(2*math.Pi*g.Frequency*t + phase)
			dp.Analog[i] = g.Offset + g.Amplitude*s
			dp.Digital[i] = s > 0
		}
		out[c] = dp
	}
	return out
}

type serverMetrics struct {
	openConnections tally.Gauge
	handshakeErrors tally.Counter
	frames          tally.Counter
}

func newServerMetrics(scope tally.Scope) serverMetrics {
	return serverMetrics{
		openConnections: scope.Gauge("open-connections"),
		handshakeErrors: scope.Counter("handshake-errors"),
		frames:          scope.Counter("frames"),
	}
}

// Server simulates a PM Lab daemon: it accepts subscriptions and streams
// generated data sets to every connection.
type Server struct {
	sync.Mutex

	gen     Generator
	opts    ServerOptions
	log     *zap.Logger
	metrics serverMetrics

	listener   net.Listener
	closed     bool
	closedChan chan struct{}
	conns      map[net.Conn]struct{}
	wg         sync.WaitGroup
}

// NewServer creates a new simulated daemon.
func NewServer(gen Generator, opts ServerOptions) *Server {
	if opts == nil {
		opts = NewServerOptions()
	}
	iOpts := opts.InstrumentOptions()
	return &Server{
		gen:        gen,
		opts:       opts,
		log:        iOpts.Logger(),
		metrics:    newServerMetrics(iOpts.MetricsScope().SubScope("pmlab-server")),
		closedChan: make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on address and serves until Close is called.
func (s *Server) ListenAndServe(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Close is called, at which point it
// returns nil.
func (s *Server) Serve(l net.Listener) error {
	s.Lock()
	if s.closed {
		s.Unlock()
		l.Close()
		return errServerClosed
	}
	s.listener = l
	s.Unlock()

	s.log.Info("pmlab simulator listening", zap.Stringer("address", l.Addr()))
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.closedChan:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		if !s.addConnection(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
			conn.Close()
			s.removeConnection(conn)
		}()
	}
}

func (s *Server) addConnection(conn net.Conn) bool {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.metrics.openConnections.Update(float64(len(s.conns)))
	return true
}

func (s *Server) removeConnection(conn net.Conn) {
	s.Lock()
	defer s.Unlock()
	delete(s.conns, conn)
	s.metrics.openConnections.Update(float64(len(s.conns)))
}

func (s *Server) handle(conn net.Conn) {
	logger := s.log.With(zap.Stringer("remote", conn.RemoteAddr()))
	channels, err := readSubscription(conn)
	if err != nil {
		s.metrics.handshakeErrors.Inc(1)
		logger.Warn("rejected subscription", zap.Error(err))
		return
	}

	rate := s.opts.SamplingRate()
	welcome := make([]byte, len(WelcomeMessage)+4)
	copy(welcome, WelcomeMessage)
	binary.BigEndian.PutUint32(welcome[len(WelcomeMessage):], rate)
	if _, err := conn.Write(welcome); err != nil {
		logger.Warn("unable to send welcome", zap.Error(err))
		return
	}
	logger.Info("client subscribed", zap.Int("channels", len(channels)))

	var (
		start     = uint64(s.opts.NowFn()().UnixNano())
		perFrame  = s.opts.SamplesPerFrame()
		interval  = s.opts.FrameInterval()
		maxFrames = s.opts.MaxFrames()
		offset    uint64
		buf       []byte
	)
	for frame := 0; maxFrames == 0 || frame < maxFrames; frame++ {
		ds := DataSet{
			TimestampNanos: start + offset*uint64(time.Second)/uint64(rate),
			Channels:       s.gen.Generate(channels, rate, offset, perFrame),
		}
		buf = appendFrame(buf[:0], ds)
		if _, err := conn.Write(buf); err != nil {
			select {
			case <-s.closedChan:
			default:
				logger.Info("client went away", zap.Error(err))
			}
			return
		}
		s.metrics.frames.Inc(1)
		offset += uint64(perFrame)

		if interval > 0 {
			select {
			case <-s.closedChan:
				return
			case <-time.After(interval):
			}
		}
	}
}

func readSubscription(r io.Reader) ([]uint32, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, errNoChannels
	}
	if n > MaxChannels {
		return nil, errTooManyChannels
	}
	raw := make([]byte, 4*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	channels := make([]uint32, n)
	for i := range channels {
		channels[i] = binary.BigEndian.Uint32(raw[4*i:])
		if channels[i] >= MaxChannels {
			return nil, fmt.Errorf("%w: %d", errUnknownChannelID, channels[i])
		}
	}
	return channels, nil
}

// appendFrame appends the magic, big-endian length and encoding of ds.
func appendFrame(b []byte, ds DataSet) []byte {
	b = append(b, DataSetMagic...)
	lenAt := len(b)
	b = append(b, 0, 0, 0, 0)
	b = ds.Marshal(b)
	binary.BigEndian.PutUint32(b[lenAt:], uint32(len(b)-lenAt-4))
	return b
}

// Close stops accepting connections, closes open ones and waits for their
// handlers to return.
func (s *Server) Close() {
	s.Lock()
	if s.closed {
		s.Unlock()
		return
	}
	s.closed = true
	close(s.closedChan)
	open := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		open = append(open, conn)
	}
	listener := s.listener
	s.Unlock()

	for _, conn := range open {
		conn.Close()
	}
	if listener != nil {
		listener.Close()
	}
	s.wg.Wait()
}
