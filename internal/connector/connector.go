// Package connector hides server interactions behind a theory-level API.
//
// Ownership boundary:
// - working directory and temp theory files
// - server process lifetime
// - wire traffic logging to session.log
package connector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/provekit/isactl/internal/client"
	"github.com/provekit/isactl/internal/launch"
	"github.com/provekit/isactl/internal/logging"
)

// ErrTheoryFailed reports that the prover rejected a theory; the wrapped
// message is the first error the server returned.
var ErrTheoryFailed = errors.New("connector: theory contains errors")

// Connector owns one server process and one working directory for theory
// files and logs.
type Connector struct {
	cfg        Config
	workingDir string
	proc       *launch.Process
	cli        *client.Client
	closeSink  func() error
}

// New creates the working directory, starts a server, and wires a client
// whose wire traffic is recorded to session.log in that directory.
func New(ctx context.Context, cfg Config) (*Connector, error) {
	cfg = cfg.WithDefaults()
	dir, err := workingDirectory(cfg.WorkingDir)
	if err != nil {
		return nil, err
	}

	info, proc, err := launch.Start(ctx, launch.Options{
		Binary:  cfg.Binary,
		LogFile: filepath.Join(dir, "isabelle-server.log"),
		Name:    cfg.ServerName,
		Port:    cfg.ServerPort,
	})
	if err != nil {
		return nil, err
	}

	sink, closeSink, err := logging.NewFileWireLogger(filepath.Join(dir, "session.log"))
	if err != nil {
		_ = proc.Stop()
		return nil, err
	}

	cli, err := client.New(client.Config{
		Address:  info.Address,
		Port:     info.Port,
		Password: info.Password,
	}, sink)
	if err != nil {
		_ = closeSink()
		_ = proc.Stop()
		return nil, err
	}

	return &Connector{
		cfg:        cfg,
		workingDir: dir,
		proc:       proc,
		cli:        cli,
		closeSink:  closeSink,
	}, nil
}

// WorkingDir returns the directory holding theory files and logs.
func (c *Connector) WorkingDir() string { return c.workingDir }

// Client exposes the underlying command client.
func (c *Connector) Client() *client.Client { return c.cli }

// Close stops the server process and retires the session log.
func (c *Connector) Close() error {
	if c.closeSink != nil {
		_ = c.closeSink()
	}
	return c.proc.Stop()
}

// BuildTheory verifies a theory body (the text between begin and end)
// inside a fresh session. It returns ErrTheoryFailed with the first prover
// error when validation fails.
func (c *Connector) BuildTheory(ctx context.Context, theoryBody string, imports ...string) error {
	result, err := c.runTheory(ctx, theoryBody, imports)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrTheoryFailed, result.Errors[0].Message)
	}
	return nil
}

// SledgehammerHints runs sledgehammer over a lemma statement and returns
// the proofs the provers suggest, keyed by prover name.
func (c *Connector) SledgehammerHints(ctx context.Context, lemmaText string) (map[string]string, error) {
	body := lemmaText + "\nsledgehammer\noops"
	result, err := c.runTheory(ctx, body, nil)
	if err != nil {
		return nil, err
	}
	hints := make(map[string]string)
	for _, node := range result.Nodes {
		for _, msg := range node.Messages {
			if prover, proof, ok := parseTryThis(msg.Message); ok {
				hints[prover] = proof
			}
		}
	}
	return hints, nil
}

func (c *Connector) runTheory(ctx context.Context, theoryBody string, imports []string) (client.UseTheoriesResult, error) {
	if len(imports) == 0 {
		imports = []string{"Main"}
	}
	name, err := c.writeTheoryFile(theoryBody, imports)
	if err != nil {
		return client.UseTheoriesResult{}, err
	}
	started, err := c.cli.SessionStart(ctx, c.cfg.Session, client.SessionOptions{})
	if err != nil {
		return client.UseTheoriesResult{}, err
	}
	// Each run gets its own session; stop it whether or not the theory
	// check succeeded so sessions do not pile up on the server.
	defer func() {
		if _, err := c.cli.SessionStop(ctx, started.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", started.SessionID).Msg("stopping theory session")
		}
	}()
	return c.cli.UseTheories(ctx, started.SessionID, []string{name}, client.UseTheoriesOptions{
		MasterDir: c.workingDir,
	})
}

// writeTheoryFile writes a complete theory source under a generated name
// and returns the theory name (without extension).
func (c *Connector) writeTheoryFile(theoryBody string, imports []string) (string, error) {
	name := "T" + strings.ReplaceAll(uuid.NewString(), "-", "")
	src := fmt.Sprintf("theory %s\nimports %s\nbegin\n%s\nend\n",
		name, strings.Join(imports, ", "), theoryBody)
	path := filepath.Join(c.workingDir, name+".thy")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return "", fmt.Errorf("connector: write theory file: %w", err)
	}
	return name, nil
}

// parseTryThis extracts a prover hint from one "<prover>: Try this: <proof>
// (<timing>)" message.
func parseTryThis(message string) (prover, proof string, ok bool) {
	parts := strings.SplitN(message, ": ", 3)
	if len(parts) != 3 || parts[1] != "Try this" {
		return "", "", false
	}
	proof = strings.TrimSpace(strings.SplitN(parts[2], "(", 2)[0])
	return parts[0], proof, true
}

func workingDirectory(configured string) (string, error) {
	if configured != "" {
		if err := os.MkdirAll(configured, 0o755); err != nil {
			return "", fmt.Errorf("connector: create working directory: %w", err)
		}
		return configured, nil
	}
	base, err := os.MkdirTemp("", "isactl-")
	if err != nil {
		return "", fmt.Errorf("connector: create working directory: %w", err)
	}
	dir := filepath.Join(base, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("connector: create working directory: %w", err)
	}
	return dir, nil
}
