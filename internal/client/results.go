package client

import (
	"encoding/json"
	"fmt"

	"github.com/provekit/isactl/internal/protocol/frame"
)

// Timing is the elapsed/cpu/gc triple the server reports per session.
type Timing struct {
	Elapsed float64 `json:"elapsed"`
	CPU     float64 `json:"cpu"`
	GC      float64 `json:"gc"`
}

// Position locates a message within a theory source.
type Position struct {
	Line      int    `json:"line"`
	Offset    int    `json:"offset"`
	EndOffset int    `json:"end_offset"`
	File      string `json:"file"`
}

// Message is one prover diagnostic (writeln, warning, error).
type Message struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Pos     Position `json:"pos"`
}

// NodeStatus summarizes PIDE processing of one theory node.
type NodeStatus struct {
	OK           bool `json:"ok"`
	Total        int  `json:"total"`
	Unprocessed  int  `json:"unprocessed"`
	Running      int  `json:"running"`
	Warned       int  `json:"warned"`
	Failed       int  `json:"failed"`
	Finished     int  `json:"finished"`
	Consolidated bool `json:"consolidated"`
}

// NodeResult is the per-theory payload of a use_theories reply.
type NodeResult struct {
	NodeName   string     `json:"node_name"`
	TheoryName string     `json:"theory_name"`
	Status     NodeStatus `json:"status"`
	Messages   []Message  `json:"messages"`
}

// TheoryEntry names one theory known to the server.
type TheoryEntry struct {
	NodeName   string `json:"node_name"`
	TheoryName string `json:"theory_name"`
}

// SessionStartResult is the FINISHED payload of session_start.
type SessionStartResult struct {
	SessionID string `json:"session_id"`
	TmpDir    string `json:"tmp_dir"`
	Task      string `json:"task"`
}

// SessionBuildResult is the FINISHED payload of session_build.
type SessionBuildResult struct {
	OK         bool   `json:"ok"`
	ReturnCode int    `json:"return_code"`
	Task       string `json:"task"`
	Sessions   []struct {
		Session    string `json:"session"`
		OK         bool   `json:"ok"`
		ReturnCode int    `json:"return_code"`
		Timeout    bool   `json:"timeout"`
		Timing     Timing `json:"timing"`
	} `json:"sessions"`
}

// SessionStopResult is the FINISHED payload of session_stop.
type SessionStopResult struct {
	OK         bool   `json:"ok"`
	ReturnCode int    `json:"return_code"`
	Task       string `json:"task"`
}

// UseTheoriesResult is the FINISHED payload of use_theories.
type UseTheoriesResult struct {
	OK     bool         `json:"ok"`
	Task   string       `json:"task"`
	Errors []Message    `json:"errors"`
	Nodes  []NodeResult `json:"nodes"`
}

// PurgeTheoriesResult is the OK payload of purge_theories.
type PurgeTheoriesResult struct {
	Purged   []TheoryEntry `json:"purged"`
	Retained []TheoryEntry `json:"retained"`
}

// decodeFinal unmarshals the terminal frame of an exchange into the typed
// result for one command, requiring the kind the command's contract names.
// Any other terminal kind is the caller-level contract violation the engine
// itself never raises.
func decodeFinal[T any](exchange []frame.Frame, want frame.Kind) (T, error) {
	var out T
	if len(exchange) == 0 {
		return out, fmt.Errorf("%w: empty exchange", ErrUnexpectedResponse)
	}
	last := exchange[len(exchange)-1]
	if last.Kind != want {
		return out, fmt.Errorf("%w: got %s %s, want %s", ErrUnexpectedResponse, last.Kind, last.Body.Raw, want)
	}
	if err := json.Unmarshal([]byte(last.Body.Raw), &out); err != nil {
		return out, fmt.Errorf("client: decode %s body: %w", last.Kind, err)
	}
	return out, nil
}
