// Package launch starts the local prover server process and parses the
// endpoint info line it prints on startup.
package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoServerInfo  = errors.New("launch: no server info line on stdout")
	ErrBadServerInfo = errors.New("launch: unexpected server info")
)

// Info is the connection endpoint the server prints on startup.
type Info struct {
	Name     string
	Address  string
	Port     int
	Password string
}

// Options controls the server invocation. The zero value launches
// `isabelle server` with the server's own defaults.
type Options struct {
	Binary  string // defaults to "isabelle"
	LogFile string
	Name    string
	Port    int
}

// Process is a handle on a launched server.
type Process struct {
	cmd *exec.Cmd
}

// Stop kills the server process and reaps it.
func (p *Process) Stop() error {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = p.cmd.Wait()
	return nil
}

var serverInfoPattern = regexp.MustCompile(`server "(.*)" = (.*):(.*) \(password "(.*)"\)`)

// ParseInfo extracts the endpoint from the single info line the server
// prints, e.g. `server "isabelle" = 127.0.0.1:9999 (password "pw")`.
func ParseInfo(line string) (Info, error) {
	m := serverInfoPattern.FindStringSubmatch(line)
	if m == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrBadServerInfo, line)
	}
	port, err := strconv.Atoi(m[3])
	if err != nil {
		return Info{}, fmt.Errorf("%w: port in %q", ErrBadServerInfo, line)
	}
	return Info{Name: m[1], Address: m[2], Port: port, Password: m[4]}, nil
}

// Start launches the server and blocks until it announces its endpoint.
// Cancelling ctx kills the server process; otherwise callers stop it
// explicitly through the returned handle.
func Start(ctx context.Context, opts Options) (Info, *Process, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "isabelle"
	}
	args := []string{"server"}
	if opts.LogFile != "" {
		args = append(args, "-L", opts.LogFile)
	}
	if opts.Port != 0 {
		args = append(args, "-p", strconv.Itoa(opts.Port))
	}
	if opts.Name != "" {
		args = append(args, "-n", opts.Name)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Info{}, nil, err
	}
	if err := cmd.Start(); err != nil {
		return Info{}, nil, err
	}

	proc := &Process{cmd: cmd}
	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil {
		_ = proc.Stop()
		return Info{}, nil, fmt.Errorf("%w: %v", ErrNoServerInfo, err)
	}
	info, err := ParseInfo(line)
	if err != nil {
		_ = proc.Stop()
		return Info{}, nil, err
	}
	// Keep draining stdout so the server never blocks on a full pipe.
	go func() {
		_, _ = io.Copy(io.Discard, stdout)
	}()
	log.Info().
		Str("name", info.Name).
		Str("address", info.Address).
		Int("port", info.Port).
		Msg("prover server ready")
	return info, proc, nil
}
