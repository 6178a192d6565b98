package sinter_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter"
	"github.com/zhongfu/sinter/internal/asm"
	"github.com/zhongfu/sinter/internal/fixture"
)

// TestScenarios runs each program named in internal/fixture/scenarios.yaml
// against the expectations declared there: the YAML carries only the
// expected outcome, and this driver supplies the actual bytecode for each
// named case.
func TestScenarios(t *testing.T) {
	manifest, err := fixture.Load()
	require.NoError(t, err)

	cases := map[string]func() *asm.Program{
		"add-two-ints": func() *asm.Program {
			entry := asm.NewFunc(0, 0, 4)
			entry.PushInt(3).PushInt(4).Add().Return()
			return asm.NewProgram(entry)
		},
		"divide-by-zero-yields-infinity": func() *asm.Program {
			entry := asm.NewFunc(0, 0, 4)
			entry.PushInt(1).PushInt(0).Div().Return()
			return asm.NewProgram(entry)
		},
		"bool-addition-is-a-type-error": func() *asm.Program {
			entry := asm.NewFunc(0, 0, 4)
			entry.PushBool(true).PushBool(true).Add().Return()
			return asm.NewProgram(entry)
		},
		"deep-tail-recursion-settles-at-zero": func() *asm.Program {
			countdown := asm.NewFunc(1, 1, 4)
			countdown.LoadLocal(0).PushInt(0).Eq()
			done := countdown.Label()
			countdown.BranchFalse(done)
			countdown.LoadLocal(0).Return()
			countdown.Bind(done)
			countdown.LoadParent(1, 0).LoadLocal(0).PushInt(1).Sub().CallTail(1)

			entry := asm.NewFunc(0, 1, 8)
			entry.NewClosure(countdown).StoreLocal(0).
				LoadLocal(0).
				PushInt(5000).
				Call(1).
				Return()
			return asm.NewProgram(entry, countdown)
		},
	}

	require.Len(t, manifest.Scenarios, len(cases), "scenarios.yaml and the test driver have drifted apart")

	for _, scenario := range manifest.Scenarios {
		scenario := scenario
		t.Run(scenario.Name, func(t *testing.T) {
			build, ok := cases[scenario.Name]
			require.True(t, ok, "no program registered for scenario %q", scenario.Name)

			m := sinter.New(sinter.WithStackSize(16))
			result, err := m.Run(build().Build())

			switch scenario.Kind {
			case "fault":
				require.Error(t, err)
				var f sinter.Fault
				require.True(t, errors.As(err, &f))
				require.Contains(t, f.Error(), scenario.Fault)
			case "int":
				require.NoError(t, err)
				require.Equal(t, sinter.ResultInt, result.Kind)
				require.Equal(t, int32(scenario.Value), result.Int())
			case "float":
				require.NoError(t, err)
				require.Equal(t, sinter.ResultFloat, result.Kind)
				if math.IsInf(scenario.Value, 0) {
					require.True(t, math.IsInf(float64(result.Float()), int(math.Copysign(1, scenario.Value))))
				} else {
					require.InDelta(t, scenario.Value, result.Float(), 1e-6)
				}
			default:
				t.Fatalf("scenario %q: unknown kind %q", scenario.Name, scenario.Kind)
			}
		})
	}
}
