package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in      string
		want    Operation
		wantErr bool
	}{
		{"READ", OpRead, false},
		{"write", OpWrite, false},
		{"Delete", OpDelete, false},
		{"APPEND", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseOperation(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestOperation_PriorityOrder(t *testing.T) {
	// Admission tie-break relies on the numeric order of operations.
	assert.Less(t, OpRead, OpWrite)
	assert.Less(t, OpWrite, OpDelete)
}

func TestOperation_TextRoundTrip(t *testing.T) {
	for _, op := range []Operation{OpRead, OpWrite, OpDelete} {
		text, err := op.MarshalText()
		require.NoError(t, err)
		var back Operation
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, op, back)
	}
}

func TestOperation_InvalidCannotMarshal(t *testing.T) {
	_, err := Operation(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Operation(9)", Operation(9).String())
	assert.False(t, Operation(9).Valid())
}

func TestRequest_DeadlineAndString(t *testing.T) {
	req := newReq(0, 12, 0, OpRead, 4)
	assert.Equal(t, int64(9), req.Deadline(5))
	assert.Equal(t, int64(math.MaxInt64), req.Deadline(math.MaxInt64), "deadline saturates")
	assert.Equal(t, "Request: (User: 12, File: 1, Op: READ, Arrival: 4s)", req.String())
}

func TestOutcome_Terminal(t *testing.T) {
	assert.True(t, OutcomeServed.Terminal())
	assert.True(t, OutcomeDeclined.Terminal())
	assert.True(t, OutcomeCanceled.Terminal())
	assert.False(t, Outcome("").Terminal())
}

func TestOutcomeFor(t *testing.T) {
	o, ok := OutcomeFor(nil)
	assert.True(t, ok)
	assert.Equal(t, OutcomeServed, o)

	o, ok = OutcomeFor(ErrInvalidTarget)
	assert.True(t, ok)
	assert.Equal(t, OutcomeDeclined, o)

	o, ok = OutcomeFor(ErrTimeoutExceeded)
	assert.True(t, ok)
	assert.Equal(t, OutcomeCanceled, o)

	_, ok = OutcomeFor(ErrCoordinatorClosed)
	assert.False(t, ok)
}
