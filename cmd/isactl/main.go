package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/provekit/isactl/internal/client"
	"github.com/provekit/isactl/internal/connector"
	"github.com/provekit/isactl/internal/logging"
	"github.com/provekit/isactl/internal/observability"
	"github.com/provekit/isactl/internal/protocol/session"
)

const usage = `usage: isactl [flags] <command> [args]

commands talking to a running server (need -addr/-port/-password or -config):
  help                           list server commands
  echo <text>                    ask the server to echo text
  start [session]                start a session, print its id
  stop <session-id>              stop a session
  build <session>                build a session from its ROOT file
  use <session-id> <theory>...   run the prover on theory files
  purge <session-id> <theory>... purge theories from the server
  cancel <task-id>               try to cancel a running task
  shutdown                       shut the server down

commands launching their own server:
  verify <file>                  check a theory body read from file
  hints <lemma>                  sledgehammer proof suggestions for a lemma
`

func main() {
	logging.ConfigureRuntime()
	observability.RegisterMetrics()
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "isactl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("isactl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to isactl.toml")
	addr := fs.String("addr", "", "server address")
	port := fs.Int("port", 0, "server port")
	password := fs.String("password", "", "server password")
	metricsAddr := fs.String("metrics", "", "prometheus exposition listen address")
	logWire := fs.Bool("log-wire", false, "log every wire line")
	timeout := fs.Duration("timeout", 0, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := defaultSettings()
	if *configPath != "" {
		loaded, err := loadSettings(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.client.Address = *addr
	}
	if *port != 0 {
		cfg.client.Port = *port
	}
	if *password != "" {
		cfg.client.Password = *password
	}
	if *metricsAddr != "" {
		cfg.metricsAddr = *metricsAddr
	}
	if *logWire {
		cfg.logWire = true
	}

	if cfg.metricsAddr != "" {
		go serveMetrics(cfg.metricsAddr)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "verify", "hints":
		return runConnector(ctx, cfg, command, rest)
	default:
		return runClient(ctx, cfg, command, rest)
	}
}

func runClient(ctx context.Context, cfg settings, command string, args []string) error {
	var sink session.Sink
	if cfg.logWire {
		sink = logging.NewWireLogger(log.Logger)
	}
	cli, err := client.New(cfg.client, sink)
	if err != nil {
		return err
	}

	switch command {
	case "help":
		commands, err := cli.Help(ctx)
		if err != nil {
			return err
		}
		for _, name := range commands {
			fmt.Println(name)
		}
		return nil
	case "echo":
		if len(args) != 1 {
			return errors.New("echo needs exactly one argument")
		}
		echoed, err := cli.Echo(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(echoed)
	case "start":
		sessionName := cfg.session
		if len(args) > 0 {
			sessionName = args[0]
		}
		started, err := cli.SessionStart(ctx, sessionName, client.SessionOptions{})
		if err != nil {
			return err
		}
		fmt.Println(started.SessionID)
		return nil
	case "stop":
		if len(args) != 1 {
			return errors.New("stop needs a session id")
		}
		result, err := cli.SessionStop(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	case "build":
		if len(args) != 1 {
			return errors.New("build needs a session name")
		}
		result, err := cli.SessionBuild(ctx, args[0], client.SessionOptions{})
		if err != nil {
			return err
		}
		return printJSON(result)
	case "use":
		if len(args) < 2 {
			return errors.New("use needs a session id and at least one theory")
		}
		result, err := cli.UseTheories(ctx, args[0], args[1:], client.UseTheoriesOptions{
			MasterDir: cfg.workingDir,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	case "purge":
		if len(args) < 2 {
			return errors.New("purge needs a session id and at least one theory")
		}
		result, err := cli.PurgeTheories(ctx, args[0], args[1:], cfg.workingDir, false)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "cancel":
		if len(args) != 1 {
			return errors.New("cancel needs a task id")
		}
		return cli.Cancel(ctx, args[0])
	case "shutdown":
		return cli.Shutdown(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runConnector(ctx context.Context, cfg settings, command string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%s needs exactly one argument", command)
	}

	conn, err := connector.New(ctx, connector.Config{
		WorkingDir: cfg.workingDir,
		Session:    cfg.session,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("stopping prover server")
		}
	}()
	log.Info().Str("working_dir", conn.WorkingDir()).Msg("connector ready")

	switch command {
	case "verify":
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := conn.BuildTheory(ctx, strings.TrimSpace(string(body))); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	case "hints":
		hints, err := conn.SledgehammerHints(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(hints)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
	}
}
