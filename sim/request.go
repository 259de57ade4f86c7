// Defines the Request struct that models a single file-access request in the simulation.
// Tracks the requester, the target file, the operation kind and the scheduled arrival time.

package sim

import (
	"fmt"
	"math"
	"strings"
)

// Operation is the kind of access a request performs on a file.
// The numeric order doubles as the tie-break priority used by the
// admission queue: reads are offered before writes, writes before deletes.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpDelete
)

// operationNames maps each Operation to its script keyword.
var operationNames = map[Operation]string{
	OpRead:   "READ",
	OpWrite:  "WRITE",
	OpDelete: "DELETE",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// Valid reports whether op is one of the three known operations.
func (op Operation) Valid() bool {
	_, ok := operationNames[op]
	return ok
}

// ParseOperation converts a script keyword (case-insensitive) into an Operation.
func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if strings.EqualFold(s, name) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q (want READ, WRITE or DELETE)", s)
}

// MarshalText implements encoding.TextMarshaler so scenarios round-trip as keywords.
func (op Operation) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", op)
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operation) UnmarshalText(text []byte) error {
	parsed, err := ParseOperation(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// Request is one requester's intent to access one file at a virtual time.
// Requests are immutable once built; the dispatcher consumes each exactly once.
type Request struct {
	Seq         int       // Position in the input script; last-resort ordering key
	RequesterID int       // User id from the script
	ResourceID  int       // 0-based file id; may be out of range (declined at access time)
	Op          Operation // READ, WRITE or DELETE
	Arrival     int64     // Scheduled arrival in virtual seconds since simulation start
}

// Deadline returns the virtual time after which a still-waiting request is abandoned.
// The sum saturates at math.MaxInt64.
func (req Request) Deadline(waitTimeout int64) int64 {
	if waitTimeout > math.MaxInt64-req.Arrival {
		return math.MaxInt64
	}
	return req.Arrival + waitTimeout
}

// This method returns a human-readable string representation of a Request.
// Files are shown 1-based, matching the input script.
func (req Request) String() string {
	return fmt.Sprintf("Request: (User: %d, File: %d, Op: %s, Arrival: %ds)", req.RequesterID, req.ResourceID+1, req.Op, req.Arrival)
}

// Outcome is the terminal result of a request.
type Outcome string

const (
	OutcomeServed   Outcome = "served"
	OutcomeDeclined Outcome = "declined-invalid-resource"
	OutcomeCanceled Outcome = "canceled-timeout"
)

// Terminal reports whether o is one of the three terminal outcomes.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeServed, OutcomeDeclined, OutcomeCanceled:
		return true
	}
	return false
}
