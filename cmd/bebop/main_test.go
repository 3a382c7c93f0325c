package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptName(t *testing.T) {
	var out bytes.Buffer
	prompt := promptName(bufio.NewReader(strings.NewReader("  ed  \n\n")), &out)

	name, ok, err := prompt(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ed", name)
	assert.Contains(t, out.String(), "User u1")

	name, ok, err = prompt(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok, err = prompt(context.Background(), "u1", "fallback")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fallback", name)
}
