// Package trace reads memory access traces. A trace is a text file with
// one access per line in the form "<pc>: <R|W> <address>", with the
// program counter and the address in hexadecimal. A line starting with
// "#eof" ends the trace early.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Op is the kind of a memory access.
type Op int

const (
	// OpRead is a memory read access.
	OpRead Op = iota

	// OpWrite is a memory write access.
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "W"
	}
	return "R"
}

// An Event is one memory access from a trace.
type Event struct {
	PC   uint64
	Op   Op
	Addr uint64
}

const eofMarker = "#eof"

// A Reader yields the events of one trace in file order. Malformed lines
// are skipped and counted, never reported as errors.
type Reader struct {
	scanner *bufio.Scanner
	skipped uint64
	done    bool
}

// NewReader creates a Reader that parses the trace text from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
	}
}

// Next returns the next well-formed event of the trace. It returns io.EOF
// when the trace is exhausted or the end-of-trace marker is reached, and
// the underlying read error if the source itself fails.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if strings.HasPrefix(line, eofMarker) {
			r.done = true
			return Event{}, io.EOF
		}

		event, ok := parseLine(line)
		if !ok {
			r.skipped++
			continue
		}

		return event, nil
	}

	r.done = true

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}

	return Event{}, io.EOF
}

// Skipped returns the number of malformed lines seen so far.
func (r *Reader) Skipped() uint64 {
	return r.skipped
}

func parseLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Event{}, false
	}

	pcField, ok := strings.CutSuffix(fields[0], ":")
	if !ok {
		return Event{}, false
	}

	pc, ok := parseHex(pcField)
	if !ok {
		return Event{}, false
	}

	var op Op
	switch fields[1] {
	case "R":
		op = OpRead
	case "W":
		op = OpWrite
	default:
		return Event{}, false
	}

	addr, ok := parseHex(fields[2])
	if !ok {
		return Event{}, false
	}

	return Event{PC: pc, Op: op, Addr: addr}, true
}

func parseHex(s string) (uint64, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
