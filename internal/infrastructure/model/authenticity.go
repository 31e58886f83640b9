package model

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"trustlens/pkg/logger"
)

// AuthenticityChecker runs the image authenticity model as a subprocess.
// The model is heavyweight, so exactly one invocation runs at a time:
// a second caller does not queue, it is shed and proceeds without the
// signal. The slot channel has capacity 1 and acquisition never blocks.
type AuthenticityChecker struct {
	command string
	args    []string
	timeout time.Duration
	slot    chan struct{}
	logger  *logger.Logger
}

// NewAuthenticityChecker creates the checker. An empty command yields a
// permanently unavailable checker.
func NewAuthenticityChecker(command string, args []string, timeout time.Duration, log *logger.Logger) *AuthenticityChecker {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AuthenticityChecker{
		command: command,
		args:    args,
		timeout: timeout,
		slot:    make(chan struct{}, 1),
		logger:  log.WithComponent("authenticity"),
	}
}

// Available reports whether a model command is configured.
func (c *AuthenticityChecker) Available() bool {
	return c.command != ""
}

// FakeProbability feeds the image to the model on stdin and reads a
// probability in [0,1] from stdout. ok=false means the slot was busy and
// the sample was shed, not an error.
func (c *AuthenticityChecker) FakeProbability(ctx context.Context, img []byte) (float64, bool, error) {
	if !c.Available() {
		return 0, false, nil
	}

	select {
	case c.slot <- struct{}{}:
		defer func() { <-c.slot }()
	default:
		return 0, false, nil
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, c.command, c.args...)
	cmd.Stdin = bytes.NewReader(img)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, false, fmt.Errorf("authenticity model run: %w", err)
	}

	prob, err := strconv.ParseFloat(strings.TrimSpace(out.String()), 64)
	if err != nil {
		return 0, false, fmt.Errorf("authenticity model output %q: %w", out.String(), err)
	}
	if prob < 0 || prob > 1 {
		return 0, false, fmt.Errorf("authenticity probability %v out of range", prob)
	}

	c.logger.Debug().Float64("fake_prob", prob).Msg("authenticity check complete")
	return prob, true, nil
}
