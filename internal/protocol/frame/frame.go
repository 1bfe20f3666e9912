// Package frame owns the wire-level message unit of the prover server
// protocol: one status token, an optional payload, and the two delimiting
// styles (newline-terminated, length-prefixed).
package frame

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the leading status token of one server response.
type Kind string

const (
	KindOK       Kind = "OK"
	KindFinished Kind = "FINISHED"
	KindNote     Kind = "NOTE"
	KindFailed   Kind = "FAILED"
	KindError    Kind = "ERROR"
)

var ErrMalformed = errors.New("frame: malformed response")

// Valid reports whether k is one of the five wire status tokens.
func (k Kind) Valid() bool {
	switch k {
	case KindOK, KindFinished, KindNote, KindFailed, KindError:
		return true
	}
	return false
}

// Body is the payload following the kind token. The reader decides once
// whether the text decodes as JSON; downstream code checks IsJSON instead
// of re-testing decodability. Raw always holds the original payload text so
// the wire form can be re-rendered losslessly.
type Body struct {
	Raw    string
	JSON   any
	IsJSON bool
}

// Frame is one decoded protocol message.
type Frame struct {
	Kind           Kind
	Body           Body
	DeclaredLen    int  // byte length announced by a length-prefix line
	LengthPrefixed bool // true when DeclaredLen is meaningful
}

var (
	lengthLine = regexp.MustCompile(`^\d+$`)
	kindBody   = regexp.MustCompile(`(?s)^(\w+) ?(.*)$`)
)

// Read decodes exactly one frame from r.
//
// A line holding only a decimal number is a length prefix: the frame content
// is the next DeclaredLen raw bytes, which may contain newline bytes and are
// never re-split on them. Any other line is the frame content itself, with
// the terminator stripped.
func Read(r *bufio.Reader) (Frame, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || line == "" {
			return Frame{}, err
		}
	}
	terminated := strings.HasSuffix(line, "\n")
	content := strings.TrimSuffix(line, "\n")

	var f Frame
	if terminated && lengthLine.MatchString(content) {
		n, err := strconv.Atoi(content)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: length prefix %q", ErrMalformed, content)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, fmt.Errorf("%w: payload shorter than declared length %d", ErrMalformed, n)
			}
			return Frame{}, err
		}
		content = string(payload)
		f.DeclaredLen = n
		f.LengthPrefixed = true
	}

	m := kindBody.FindStringSubmatch(content)
	if m == nil {
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformed, content)
	}
	kind := Kind(m[1])
	if !kind.Valid() {
		return Frame{}, fmt.Errorf("%w: unknown response kind %q", ErrMalformed, m[1])
	}
	f.Kind = kind
	f.Body = decodeBody(m[2])
	return f, nil
}

func decodeBody(text string) Body {
	b := Body{Raw: text}
	if text == "" {
		return b
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		b.JSON = v
		b.IsJSON = true
	}
	return b
}

// String renders the frame in its wire form, including the length-prefix
// line when one was present.
func (f Frame) String() string {
	var sb strings.Builder
	if f.LengthPrefixed {
		sb.WriteString(strconv.Itoa(f.DeclaredLen))
		sb.WriteByte('\n')
	}
	sb.WriteString(string(f.Kind))
	if f.Body.Raw != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.Body.Raw)
	}
	return sb.String()
}
