package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EVOLVER_CONFIG", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTextCommand(t *testing.T) {
	out, err := execute(t, "text", "hello",
		"--population", "100", "--mutation", "0.2", "--seed", "3", "--workers", "2", "--every", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "gen     0  size   100")
	assert.Contains(t, out, "converged after")
	assert.Contains(t, out, `best "hello" (fitness 0)`)
}

func TestTextCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "text")
	assert.Error(t, err)

	_, err = execute(t, "text", "abc", "--alphabet", "xyz")
	assert.Error(t, err)

	_, err = execute(t, "text", "abc", "--crossover", "3")
	assert.Error(t, err)
}

func TestVectorCommand(t *testing.T) {
	out, err := execute(t, "vector", "--objective", "sphere", "--bounds", "-2:2,-2:2",
		"--tolerance", "0.5", "--population", "60", "--seed", "5", "--max-generations", "200", "--every", "0")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "gen ")
	assert.Contains(t, out, "best [")
}

func TestParseBounds(t *testing.T) {
	box, err := parseBounds([]string{"-5.12:5.12", " 0 : 1 "})
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{-5.12, 5.12}, {0, 1}}, box)

	for _, bad := range []string{"5", "a:1", "1:b"} {
		_, err := parseBounds([]string{bad})
		assert.Error(t, err, bad)
	}
}
