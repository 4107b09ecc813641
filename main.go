package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/app"
	"csvhouse/internal/logging"
)

const usage = `Usage: csvhouse [flags] [command] [args]

Commands:
  run               load the source file, generate the partitioned load, render reports (default)
  load [file]       bulk load only, optionally from another file
  generate          synthetic partitioned load only
  report            render the histogram reports only
  watch             re-run on trigger.schedule / trigger.watch_file until interrupted
  runs [n]          list the last n runs (default 20)
  mcp               serve the workflow as MCP tools on stdio

Flags:
`

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	level := flag.String("level", "info", "log level: debug, info, warn, error")
	noLog := flag.Bool("no-log", false, "disable logging")
	jsonLog := flag.Bool("json-log", false, "log JSON lines instead of console output")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.Setup(*noLog, *level, !*jsonLog)

	command, args := "", []string(nil)
	if flag.NArg() > 0 {
		command, args = flag.Arg(0), flag.Args()[1:]
	}

	if err := run(*configPath, command, args); err != nil {
		zlog.Error().Err(err).Str("command", command).Msg("csvhouse failed")
		os.Exit(1)
	}
}

func run(configPath, command string, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{ConfigPath: configPath})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Execute(ctx, command, args)
}
