// Command deepflow validates, executes and queues flow documents written in
// JSON, YAML or HCL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/petrijr/deepflow/internal/ctxlog"
)

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string `kong:"name='log-level',default='info',enum='debug,info,warn,error',env='DEEPFLOW_LOG_LEVEL',help='Log level (debug, info, warn, error).'"`
	LogFormat string `kong:"name='log-format',default='text',enum='text,json',env='DEEPFLOW_LOG_FORMAT',help='Log format (text, json).'"`
}

type cli struct {
	Globals

	Validate ValidateCmd `kong:"cmd,help='Checks a flow document for structural errors.'"`
	Run      RunCmd      `kong:"cmd,help='Executes a flow document in this process.'"`
	Show     ShowCmd     `kong:"cmd,help='Prints a flow document in canonical form.'"`
	Enqueue  EnqueueCmd  `kong:"cmd,help='Stores a flow and queues its execution in a SQLite database.'"`
	Worker   WorkerCmd   `kong:"cmd,help='Processes queued executions from a SQLite database.'"`
	Version  VersionCmd  `kong:"cmd,help='Display deepflow version information.'"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	parser := kong.Must(&c,
		kong.Name("deepflow"),
		kong.Description("Validates and executes dependency graphs of resource actions."),
		kong.UsageOnError())

	app, parseErr := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(parseErr)

	logger := newLogger(c.LogLevel, c.LogFormat, os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)
	app.BindTo(ctx, (*context.Context)(nil))

	appErr := app.Run()
	app.FatalIfErrorf(appErr)
}
