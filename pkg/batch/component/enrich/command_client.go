package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// commandWaitDelay bounds how long output pipes are drained after the process is killed.
const commandWaitDelay = 2 * time.Second

// commandSpec is the program run for a stage.
type commandSpec struct {
	name string
	args []string
}

// CommandClient runs an external program per stage call. The request JSON is written to stdin and the
// record JSON is read from stdout.
type CommandClient struct {
	fallback commandSpec
	stages   map[string]commandSpec
}

var _ Client = (*CommandClient)(nil)

// NewCommandClient creates a CommandClient. A stage with its own command overrides the default command.
func NewCommandClient(cfg config.EnrichmentConfig) (*CommandClient, error) {
	c := &CommandClient{
		fallback: commandSpec{name: cfg.Command, args: cfg.Args},
		stages:   make(map[string]commandSpec),
	}
	for _, stage := range cfg.Stages {
		if stage.Command != "" {
			c.stages[stage.Name] = commandSpec{name: stage.Command, args: stage.Args}
		} else if cfg.Command == "" {
			return nil, fmt.Errorf("stage '%s' has no command and no default command is configured", stage.Name)
		}
	}
	if cfg.Command == "" && len(cfg.Stages) == 0 {
		return nil, fmt.Errorf("enrichment.command must be set for the command client")
	}
	return c, nil
}

// Complete implements Client.
func (c *CommandClient) Complete(ctx context.Context, req Request) (*model.EnrichedRecord, error) {
	spec, ok := c.stages[req.Stage]
	if !ok {
		spec = c.fallback
	}

	input, err := json.Marshal(newRequestPayload(req))
	if err != nil {
		return nil, exception.NewPermanentEnrichmentError("failed to encode command input", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, spec.name, spec.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = commandWaitDelay

	if err := cmd.Run(); err != nil {
		return nil, classifyCommandError(ctx, spec.name, err, stderr.String())
	}

	fields, err := ExtractJSON(stdout.String())
	if err != nil {
		return nil, err
	}
	return &model.EnrichedRecord{ID: req.Item.ID, Fields: fields}, nil
}

func classifyCommandError(ctx context.Context, name string, err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if len(detail) > 500 {
		detail = detail[:500]
	}
	cause := err
	if detail != "" {
		cause = fmt.Errorf("%w: %s", err, detail)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return exception.NewTransientEnrichmentError(fmt.Sprintf("command '%s' did not finish", name), errors.Join(ctxErr, cause))
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return exception.NewPermanentEnrichmentError(fmt.Sprintf("command '%s' could not be started", name), cause)
	}
	lower := strings.ToLower(detail)
	if strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") {
		return exception.NewTransientEnrichmentError(fmt.Sprintf("command '%s' was rate limited", name), cause)
	}
	return exception.NewPermanentEnrichmentError(fmt.Sprintf("command '%s' exited with code %d", name, exitErr.ExitCode()), cause)
}
