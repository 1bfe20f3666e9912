// Package client owns the command channel to a running prover server:
// one connection per command, the password preamble, exchange collection,
// and the typed command builders layered on top.
package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/provekit/isactl/internal/observability"
	"github.com/provekit/isactl/internal/protocol/frame"
	"github.com/provekit/isactl/internal/protocol/session"
)

var (
	ErrAddressRequired  = errors.New("client: server address required")
	ErrPasswordRequired = errors.New("client: server password required")
	// ErrUnexpectedResponse reports a terminal frame whose kind the caller
	// cannot interpret as the single definitive result it asked for.
	ErrUnexpectedResponse = errors.New("client: unexpected response kind")
)

// Config identifies one reachable server endpoint.
type Config struct {
	Address  string
	Port     int
	Password string
	// DialTimeout bounds connection establishment only; a context deadline
	// additionally bounds the whole exchange.
	DialTimeout time.Duration
}

func (c Config) WithDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrAddressRequired
	}
	if strings.TrimSpace(c.Password) == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Client issues commands to one prover server. It is safe for concurrent
// use: every command opens its own connection and shares no mutable state
// beyond the sink, which must itself be concurrency-safe.
type Client struct {
	cfg  Config
	sink session.Sink
}

func New(cfg Config, sink session.Sink) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg.WithDefaults(), sink: sink}, nil
}

// Execute sends one command and collects its full exchange. Asynchronous
// commands close on FINISHED, FAILED, or ERROR; synchronous ones on a
// second OK or an ERROR. The connection is closed whether or not the
// exchange completes. On error no partial exchange is returned.
func (c *Client) Execute(ctx context.Context, command string, asynchronous bool) ([]frame.Frame, error) {
	final := session.SyncFinal
	if asynchronous {
		final = session.AsyncFinal
	}

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	addr := net.JoinHostPort(c.cfg.Address, strconv.Itoa(c.cfg.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	preamble := c.cfg.Password + "\n" + command + "\n"
	if _, err := conn.Write([]byte(preamble)); err != nil {
		return nil, err
	}
	if c.sink != nil {
		c.sink.RecordLine(preamble)
	}

	start := time.Now()
	name := commandName(command)
	exchange, err := session.Collect(bufio.NewReader(conn), final, c.sink)
	if err != nil {
		observability.RecordExchange(name, "", false, time.Since(start))
		return nil, err
	}
	for _, f := range exchange {
		observability.RecordFrame(string(f.Kind))
	}
	last := exchange[len(exchange)-1]
	observability.RecordExchange(name, string(last.Kind), true, time.Since(start))
	return exchange, nil
}

func commandName(command string) string {
	if i := strings.IndexByte(command, ' '); i >= 0 {
		return command[:i]
	}
	return command
}
