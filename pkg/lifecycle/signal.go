package lifecycle

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// SignalMonitor drives the lifecycle bus from process signals, the
// convention for headless devices with no window system: SIGUSR2 moves
// the agent to the foreground, SIGUSR1 to the background.
type SignalMonitor struct {
	*Bus

	logger zerolog.Logger

	sigCh   chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewSignalMonitor creates a monitor starting in the foreground state.
// Call Start to begin listening for signals.
func NewSignalMonitor(logger zerolog.Logger) *SignalMonitor {
	return &SignalMonitor{
		Bus:    NewBus(StateForeground, logger),
		logger: logger,
	}
}

// Start registers the signal handlers and begins publishing transitions.
func (m *SignalMonitor) Start() error {
	if m.running {
		m.logger.Warn().Msg("Lifecycle monitor is already running")
		return errors.New("lifecycle monitor is already running")
	}

	m.sigCh = make(chan os.Signal, 1)
	m.done = make(chan struct{})
	signal.Notify(m.sigCh, syscall.SIGUSR1, syscall.SIGUSR2)
	m.running = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		for {
			select {
			case sig := <-m.sigCh:
				switch sig {
				case syscall.SIGUSR2:
					m.Publish(StateForeground)
				case syscall.SIGUSR1:
					m.Publish(StateBackground)
				}
			case <-m.done:
				return
			}
		}
	}()

	m.logger.Info().Msg("Lifecycle monitor started")
	return nil
}

// Stop unregisters the signal handlers and waits for the loop to exit.
func (m *SignalMonitor) Stop() error {
	if !m.running {
		m.logger.Warn().Msg("Lifecycle monitor is not running")
		return errors.New("lifecycle monitor is not running")
	}

	signal.Stop(m.sigCh)
	close(m.done)
	m.wg.Wait()

	m.running = false
	m.logger.Info().Msg("Lifecycle monitor stopped")
	return nil
}
