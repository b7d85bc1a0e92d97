package geolocation

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// SerialNMEAProvider reads fixes from a GPS receiver attached to a
// serial port, emitting NMEA sentences. Accuracy is the sentence HDOP,
// used as a proxy for horizontal error. HighAccuracy is advisory only;
// the receiver decides its own fix quality.
type SerialNMEAProvider struct {
	port     string
	baudRate int
	logger   zerolog.Logger

	mu      sync.Mutex
	lastFix *Position
}

// NewSerialNMEAProvider creates a provider for the GPS device on the
// given serial port.
func NewSerialNMEAProvider(port string, baudRate int, logger zerolog.Logger) *SerialNMEAProvider {
	return &SerialNMEAProvider{
		port:     port,
		baudRate: baudRate,
		logger:   logger,
	}
}

// CurrentPosition opens the port and waits for the first valid GGA fix.
// A cached fix no older than opts.MaximumAge is returned without
// touching the device.
func (p *SerialNMEAProvider) CurrentPosition(ctx context.Context, opts FixOptions) (Position, error) {
	if fix, ok := p.cachedFix(opts.MaximumAge); ok {
		return fix, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFixTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := serial.OpenPort(&serial.Config{Name: p.port, Baud: p.baudRate})
	if err != nil {
		return Position{}, NewError(CodePositionUnavailable, "failed to open GPS device: "+err.Error())
	}
	defer s.Close()

	fixCh := make(chan Position, 1)
	errCh := make(chan error, 1)
	go func() {
		fix, err := p.firstFix(s)
		if err != nil {
			errCh <- err
			return
		}
		fixCh <- fix
	}()

	select {
	case fix := <-fixCh:
		p.storeFix(fix)
		return fix, nil
	case err := <-errCh:
		return Position{}, NewError(CodePositionUnavailable, err.Error())
	case <-ctx.Done():
		// Unblock the reader; its late error lands in the buffered channel.
		s.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, NewError(CodeTimeout, "timed out waiting for a GPS fix")
		}
		return Position{}, Normalize(ctx.Err())
	}
}

// WatchPosition starts a read loop on the port, delivering fixes that
// pass the distance filter and fastest-interval throttle. The device
// emits at its own cadence, so opts.Interval is not used here.
func (p *SerialNMEAProvider) WatchPosition(onUpdate func(Position), onError func(error), opts WatchOptions) (Watch, error) {
	s, err := serial.OpenPort(&serial.Config{Name: p.port, Baud: p.baudRate})
	if err != nil {
		return nil, NewError(CodePositionUnavailable, "failed to open GPS device: "+err.Error())
	}

	w := &serialWatch{port: s, done: make(chan struct{})}
	gate := newDeliveryGate(opts)

	go func() {
		scanner := bufio.NewScanner(s)
		for scanner.Scan() {
			if w.stopped() {
				return
			}
			fix, ok := p.parseGGA(scanner.Text())
			if !ok || !gate.Admit(fix) {
				continue
			}
			p.storeFix(fix)
			onUpdate(fix)
		}
		if w.stopped() {
			return
		}
		if err := scanner.Err(); err != nil {
			onError(NewError(CodePositionUnavailable, err.Error()))
			return
		}
		onError(NewError(CodePositionUnavailable, "gps sentence stream ended"))
	}()

	return w, nil
}

// Close implements Provider. The port is owned per watch or per
// one-shot call, so there is nothing to release here.
func (p *SerialNMEAProvider) Close() error {
	return nil
}

// firstFix reads sentences until one carries a usable fix.
func (p *SerialNMEAProvider) firstFix(r io.Reader) (Position, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if fix, ok := p.parseGGA(scanner.Text()); ok {
			return fix, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Position{}, err
	}
	return Position{}, errors.New("no valid GPS data found")
}

// parseGGA extracts a Position from a GGA sentence. Malformed lines and
// sentences without a fix are skipped rather than treated as failures;
// receivers keep emitting GGA while searching for satellites.
func (p *SerialNMEAProvider) parseGGA(line string) (Position, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Position{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Skipping unparseable NMEA sentence")
		return Position{}, false
	}

	gga, ok := sentence.(nmea.GGA)
	if !ok || gga.FixQuality == nmea.Invalid {
		return Position{}, false
	}

	return Position{
		Latitude:   gga.Latitude,
		Longitude:  gga.Longitude,
		Accuracy:   gga.HDOP, // HDOP as a proxy for horizontal error
		CapturedAt: time.Now().UTC(),
	}, true
}

func (p *SerialNMEAProvider) storeFix(fix Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastFix = &fix
}

func (p *SerialNMEAProvider) cachedFix(maxAge time.Duration) (Position, bool) {
	if maxAge <= 0 {
		return Position{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastFix == nil || time.Since(p.lastFix.CapturedAt) > maxAge {
		return Position{}, false
	}
	return *p.lastFix, true
}

// serialWatch owns the open port for one continuous watch.
type serialWatch struct {
	port *serial.Port
	done chan struct{}
	once sync.Once
}

// Stop closes the port, which unblocks and terminates the read loop.
func (w *serialWatch) Stop() {
	w.once.Do(func() {
		close(w.done)
		w.port.Close()
	})
}

func (w *serialWatch) stopped() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}
