package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/petrijr/deepflow"
	"github.com/petrijr/deepflow/internal/ctxlog"
	"github.com/petrijr/deepflow/internal/loader"
)

// stdout is replaced in tests.
var stdout io.Writer = os.Stdout

// ValidateCmd checks a flow document.
type ValidateCmd struct {
	File string `kong:"arg,type='existingfile',help='Flow document (.json, .yaml, .yml or .hcl).'"`
}

// Run executes the deepflow validate command.
func (cmd ValidateCmd) Run(ctx context.Context) error {
	f, err := deepflow.LoadFile(ctx, cmd.File)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%s: %w", cmd.File, err)
	}
	fmt.Fprintf(stdout, "%s: flow %q is valid (%d resources, %d steps)\n", cmd.File, f.ID(), len(f.Resources()), len(f.Steps()))
	return nil
}

// RunCmd executes a flow document with the echo runner.
type RunCmd struct {
	File        string        `kong:"arg,type='existingfile',help='Flow document (.json, .yaml, .yml or .hcl).'"`
	MaxParallel int           `kong:"name='max-parallel',default='0',help='Maximum steps running at once within a wave (0 for unbounded).'"`
	Retries     int           `kong:"name='retries',default='1',help='Attempts per step, including the first.'"`
	StepTimeout time.Duration `kong:"name='step-timeout',default='0s',help='Per-step timeout (0 for none).'"`
}

// Run executes the deepflow run command. It prints the execution result
// as JSON and fails when the execution failed.
func (cmd RunCmd) Run(ctx context.Context) error {
	f, err := deepflow.LoadFile(ctx, cmd.File)
	if err != nil {
		return err
	}

	runner := deepflow.TimeoutRunner(deepflow.EchoRunner, cmd.StepTimeout)
	runner = deepflow.Retry(cmd.Retries).Immediate().Wrap(runner)

	res := f.Execute(ctx, deepflow.ExecuteOptions{
		Runner:      runner,
		Observer:    deepflow.NewLoggingObserver(ctxlog.FromContext(ctx)),
		MaxParallel: cmd.MaxParallel,
	})

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

// ShowCmd prints a flow document in canonical form.
type ShowCmd struct {
	File   string `kong:"arg,type='existingfile',help='Flow document (.json, .yaml, .yml or .hcl).'"`
	Format string `kong:"name='format',default='json',enum='json,yaml',help='Output format (json, yaml).'"`
}

// Run executes the deepflow show command.
func (cmd ShowCmd) Run(ctx context.Context) error {
	f, err := deepflow.LoadFile(ctx, cmd.File)
	if err != nil {
		return err
	}

	var out []byte
	switch cmd.Format {
	case "yaml":
		out, err = loader.MarshalYAML(f.Serialize())
	default:
		out, err = json.MarshalIndent(f.Serialize(), "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
