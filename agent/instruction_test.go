package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstruction_Text(t *testing.T) {
	inst := NewInstructionFromText("Today is {{.date}}.")
	assert.True(t, inst.IsStatic())
	assert.False(t, inst.IsZero())

	text, err := inst.Resolve(map[string]any{"date": "Sun Oct 18, 2026"})
	require.NoError(t, err)
	assert.Equal(t, "Today is Sun Oct 18, 2026.", text)
}

func TestInstruction_Func(t *testing.T) {
	inst := NewInstructionFromFunc(func(vars map[string]any) (string, error) {
		return "focus on " + vars["topic"].(string), nil
	})
	assert.False(t, inst.IsStatic())

	text, err := inst.Resolve(map[string]any{"topic": "grinders"})
	require.NoError(t, err)
	assert.Equal(t, "focus on grinders", text)

	failing := NewInstructionFromFunc(func(map[string]any) (string, error) {
		return "", errors.New("boom")
	})
	_, err = failing.Resolve(nil)
	require.Error(t, err)
}

func TestInstruction_Or(t *testing.T) {
	var zero Instruction
	assert.True(t, zero.IsZero())

	text, err := zero.or("fallback").Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", text)

	text, err = NewInstructionFromText("own").or("fallback").Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "own", text)
}
