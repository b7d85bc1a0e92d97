package alerts

import (
	"os/exec"

	"github.com/rs/zerolog"
)

// Notifier surfaces a user-facing alert on the device. Alert must not
// block; it is called from position delivery goroutines.
type Notifier interface {
	Alert(title, message string)
}

// LogNotifier writes alerts to the agent log. The fallback for devices
// with no display helper.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Alert(title, message string) {
	n.Logger.Warn().Str("title", title).Msg(message)
}

// CommandNotifier hands alerts to an external helper, typically a small
// binary that draws on-device notifications. The helper receives the
// title and message as arguments and runs asynchronously; failures are
// logged and otherwise ignored.
type CommandNotifier struct {
	Command string
	Logger  zerolog.Logger
}

func (n CommandNotifier) Alert(title, message string) {
	if n.Command == "" {
		n.Logger.Warn().Str("title", title).Msg(message)
		return
	}

	go func() {
		if err := exec.Command(n.Command, title, message).Run(); err != nil {
			n.Logger.Error().Err(err).Str("command", n.Command).Msg("Alert helper failed")
		}
	}()
}
