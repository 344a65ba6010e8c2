// Command modelgate is an operator tool for a gateway configuration: it lists
// the catalogue, checks provider status, sends prompts and keeps a status
// store fresh on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usageText = `Usage: modelgate [global flags] <command> [flags]

Global flags:
  -config string   path to configuration file (default "modelgate.yaml")
  -env string      path to .env file, ignored if missing (default ".env")

Commands:
  models   List the model catalogue
  status   Sweep providers and show model availability
  chat     Send a prompt to a model
  watch    Refresh model statuses on a cron schedule
`

func main() {
	global := flag.NewFlagSet("modelgate", flag.ExitOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	configPath := global.String("config", "modelgate.yaml", "path to configuration file")
	envFile := global.String("env", ".env", "path to .env file (ignored if missing)")
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, *configPath, global.Arg(0), global.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, configPath, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "models":
		fs := flag.NewFlagSet("models", flag.ExitOnError)
		usage := fs.String("usage", "default", "usage type: default or external_app")
		_ = fs.Parse(args)
		return runModels(ctx, configPath, *usage, out)
	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		usage := fs.String("usage", "default", "usage type: default or external_app")
		_ = fs.Parse(args)
		return runStatus(ctx, configPath, *usage, out)
	case "chat":
		fs := flag.NewFlagSet("chat", flag.ExitOnError)
		fs.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: modelgate chat [-model id] [flags] [prompt]\n\nFlags:\n")
			fs.PrintDefaults()
		}
		opts := chatOptions{}
		fs.StringVar(&opts.model, "model", "", "model id (default: the catalogue's default text model)")
		fs.StringVar(&opts.system, "system", "", "system prompt")
		fs.StringVar(&opts.attach, "attach", "", "comma-separated attachment ids")
		fs.BoolVar(&opts.stream, "stream", false, "stream the answer")
		fs.BoolVar(&opts.render, "render", false, "render the final answer as markdown")
		fs.BoolVar(&opts.search, "search", false, "enable web search for capable models")
		fs.BoolVar(&opts.interactive, "i", false, "keep reading prompts from stdin")
		_ = fs.Parse(args)
		opts.prompt = joinArgs(fs.Args())
		opts.in = os.Stdin
		return runChat(ctx, configPath, opts, out)
	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		schedule := fs.String("cron", "*/5 * * * *", "refresh schedule (cron syntax)")
		metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
		_ = fs.Parse(args)
		return runWatch(ctx, configPath, *schedule, *metricsAddr)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
