package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/provekit/isactl/internal/testutil/testlog"
)

func TestParseInfo(t *testing.T) {
	testlog.Start(t)
	info, err := ParseInfo(`server "isabelle" = 127.0.0.1:9999 (password "test_password")` + "\n")
	if err != nil {
		t.Fatalf("parse info: %v", err)
	}
	if info.Name != "isabelle" || info.Address != "127.0.0.1" || info.Port != 9999 || info.Password != "test_password" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestParseInfoRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	if _, err := ParseInfo("wrong\n"); !errors.Is(err, ErrBadServerInfo) {
		t.Fatalf("expected ErrBadServerInfo, got %v", err)
	}
}

func fakeServerBinary(t *testing.T, infoLine string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isabelle")
	script := fmt.Sprintf("#!/bin/sh\necho '%s'\nsleep 30\n", infoLine)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestStartParsesInfoAndStops(t *testing.T) {
	testlog.Start(t)
	binary := fakeServerBinary(t, `server "test" = 127.0.0.1:9999 (password "pw")`)
	info, proc, err := Start(context.Background(), Options{Binary: binary})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if info.Port != 9999 || info.Password != "pw" {
		t.Fatalf("unexpected info %+v", info)
	}
	if err := proc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStartDrainsServerStdout(t *testing.T) {
	testlog.Start(t)
	// The server writes far more than an OS pipe buffer after the info
	// line, then records that it got through. A full pipe would block it
	// before the marker appears.
	dir := t.TempDir()
	marker := filepath.Join(dir, "flushed")
	binary := filepath.Join(dir, "isabelle")
	script := fmt.Sprintf(
		"#!/bin/sh\necho 'server \"test\" = 127.0.0.1:9999 (password \"pw\")'\nhead -c 262144 /dev/zero\ntouch '%s'\nsleep 30\n",
		marker,
	)
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}

	_, proc, err := Start(context.Background(), Options{Binary: binary})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = proc.Stop() })

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server stdout not drained past the pipe buffer")
}

func TestStartRejectsBadInfoLine(t *testing.T) {
	testlog.Start(t)
	binary := fakeServerBinary(t, "something went wrong")
	_, _, err := Start(context.Background(), Options{Binary: binary})
	if !errors.Is(err, ErrBadServerInfo) {
		t.Fatalf("expected ErrBadServerInfo, got %v", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	testlog.Start(t)
	_, _, err := Start(context.Background(), Options{Binary: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatalf("expected start failure for missing binary")
	}
}

func TestStopNilProcessIsSafe(t *testing.T) {
	testlog.Start(t)
	var proc *Process
	if err := proc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
