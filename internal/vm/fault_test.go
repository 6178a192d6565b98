package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRaisePanicsWithAFault(t *testing.T) {
	defer func() {
		r := recover()
		f, ok := r.(*fault)
		require.True(t, ok, "raise must panic with *fault")
		require.Equal(t, ReasonType, f.Reason())
		require.Contains(t, f.Error(), "type error")
		require.Contains(t, f.Error(), "bad operand")
	}()
	raise(ReasonType, "bad operand: %s", "int")
}

func TestReasonStringCoversEveryValue(t *testing.T) {
	for r := ReasonOutOfMemory; r <= ReasonInternalError; r++ {
		require.NotEqual(t, "unknown fault", r.String())
	}
}
