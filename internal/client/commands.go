package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/provekit/isactl/internal/protocol/frame"
)

// SessionOptions carries the optional arguments shared by session_build and
// session_start. Nil slices are sent as empty lists, matching the server's
// expectation that the keys are always present.
type SessionOptions struct {
	Preferences     *string
	Options         []string
	Dirs            []string
	IncludeSessions []string
	Verbose         bool
	// PrintModes applies to session_start only.
	PrintModes []string
}

func (o SessionOptions) arguments(session string) map[string]any {
	args := map[string]any{
		"session":          session,
		"options":          emptyIfNil(o.Options),
		"dirs":             emptyIfNil(o.Dirs),
		"include_sessions": emptyIfNil(o.IncludeSessions),
		"verbose":          o.Verbose,
	}
	if o.Preferences != nil {
		args["preferences"] = *o.Preferences
	}
	return args
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// SessionBuild builds a session from its ROOT file and waits for the
// background task to finish.
func (c *Client) SessionBuild(ctx context.Context, session string, opts SessionOptions) (SessionBuildResult, error) {
	exchange, err := c.executeJSON(ctx, "session_build", opts.arguments(session), true)
	if err != nil {
		return SessionBuildResult{}, err
	}
	return decodeFinal[SessionBuildResult](exchange, frame.KindFinished)
}

// SessionStart starts a new session and returns its ID and temp directory.
func (c *Client) SessionStart(ctx context.Context, session string, opts SessionOptions) (SessionStartResult, error) {
	args := opts.arguments(session)
	args["print_mode"] = emptyIfNil(opts.PrintModes)
	exchange, err := c.executeJSON(ctx, "session_start", args, true)
	if err != nil {
		return SessionStartResult{}, err
	}
	return decodeFinal[SessionStartResult](exchange, frame.KindFinished)
}

// SessionStop stops the session with the given ID.
func (c *Client) SessionStop(ctx context.Context, sessionID string) (SessionStopResult, error) {
	exchange, err := c.executeJSON(ctx, "session_stop", map[string]any{"session_id": sessionID}, true)
	if err != nil {
		return SessionStopResult{}, err
	}
	return decodeFinal[SessionStopResult](exchange, frame.KindFinished)
}

// UseTheoriesOptions carries the optional arguments of use_theories.
// Zero-valued fields are omitted so the server applies its own defaults.
type UseTheoriesOptions struct {
	MasterDir        string
	PrettyMargin     float64
	UnicodeSymbols   bool
	ExportPattern    string
	CheckDelay       float64
	CheckLimit       int
	WatchdogTimeout  float64
	NodesStatusDelay float64
}

// UseTheories runs the prover on theory files within a session and waits
// for processing to finish.
func (c *Client) UseTheories(ctx context.Context, sessionID string, theories []string, opts UseTheoriesOptions) (UseTheoriesResult, error) {
	args := map[string]any{
		"session_id": sessionID,
		"theories":   emptyIfNil(theories),
	}
	if opts.MasterDir != "" {
		args["master_dir"] = opts.MasterDir
	}
	if opts.PrettyMargin != 0 {
		args["pretty_margin"] = opts.PrettyMargin
	}
	if opts.UnicodeSymbols {
		args["unicode_symbols"] = true
	}
	if opts.ExportPattern != "" {
		args["export_pattern"] = opts.ExportPattern
	}
	if opts.CheckDelay != 0 {
		args["check_delay"] = opts.CheckDelay
	}
	if opts.CheckLimit != 0 {
		args["check_limit"] = opts.CheckLimit
	}
	if opts.WatchdogTimeout != 0 {
		args["watchdog_timeout"] = opts.WatchdogTimeout
	}
	if opts.NodesStatusDelay != 0 {
		args["nodes_status_delay"] = opts.NodesStatusDelay
	}
	exchange, err := c.executeJSON(ctx, "use_theories", args, true)
	if err != nil {
		return UseTheoriesResult{}, err
	}
	return decodeFinal[UseTheoriesResult](exchange, frame.KindFinished)
}

// PurgeTheories removes listed theories from the server. With all set, the
// server attempts to purge every presently loaded theory.
func (c *Client) PurgeTheories(ctx context.Context, sessionID string, theories []string, masterDir string, all bool) (PurgeTheoriesResult, error) {
	args := map[string]any{
		"session_id": sessionID,
		"theories":   emptyIfNil(theories),
	}
	if masterDir != "" {
		args["master_dir"] = masterDir
	}
	if all {
		args["all"] = true
	}
	exchange, err := c.executeJSON(ctx, "purge_theories", args, false)
	if err != nil {
		return PurgeTheoriesResult{}, err
	}
	return decodeFinal[PurgeTheoriesResult](exchange, frame.KindOK)
}

// Echo asks the server to echo message back and returns the echoed value.
func (c *Client) Echo(ctx context.Context, message any) (any, error) {
	exchange, err := c.executeJSON(ctx, "echo", message, false)
	if err != nil {
		return nil, err
	}
	last := exchange[len(exchange)-1]
	if last.Kind != frame.KindOK {
		return nil, fmt.Errorf("%w: got %s %s, want %s", ErrUnexpectedResponse, last.Kind, last.Body.Raw, frame.KindOK)
	}
	return last.Body.JSON, nil
}

// Help returns the list of commands the server supports.
func (c *Client) Help(ctx context.Context) ([]string, error) {
	exchange, err := c.Execute(ctx, "help", false)
	if err != nil {
		return nil, err
	}
	return decodeFinal[[]string](exchange, frame.KindOK)
}

// Cancel asks the server to try to cancel the task with the given ID. The
// server acknowledges the attempt without reporting its outcome.
func (c *Client) Cancel(ctx context.Context, task string) error {
	_, err := c.executeJSON(ctx, "cancel", map[string]any{"task": task}, false)
	return err
}

// Shutdown asks the server to shut down immediately.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.Execute(ctx, "shutdown", false)
	return err
}

func (c *Client) executeJSON(ctx context.Context, name string, args any, asynchronous bool) ([]frame.Frame, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("client: encode %s arguments: %w", name, err)
	}
	return c.Execute(ctx, name+" "+string(payload), asynchronous)
}
