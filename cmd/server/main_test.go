package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunFailsBeforeServing(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Equal(t, 1, run([]string{"--no-such-flag"}))
}
