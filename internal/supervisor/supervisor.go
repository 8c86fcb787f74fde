// Package supervisor runs the recovery action that restarts the network
// management service.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// DefaultRestartCommand restarts ConnMan under systemd.
const DefaultRestartCommand = "systemctl restart connman.service"

// Supervisor implements watchdog.Recoverer.
type Supervisor struct {
	command string
	logger  *zap.Logger
}

func New(command string, logger *zap.Logger) *Supervisor {
	if command == "" {
		command = DefaultRestartCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{command: command, logger: logger.Named("supervisor")}
}

// Command is the shell command run by Recover.
func (s *Supervisor) Command() string { return s.command }

// Recover runs the command through sh -c. A non-zero exit is returned
// with the command output; it is never retried here.
func (s *Supervisor) Recover(ctx context.Context) error {
	s.logger.Info("running restart command", zap.String("command", s.command))
	out, err := exec.CommandContext(ctx, "sh", "-c", s.command).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return fmt.Errorf("restart command %q: %w: %s", s.command, err, output)
	}
	if output != "" {
		s.logger.Debug("restart command output", zap.String("output", output))
	}
	return nil
}
