package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/personal-context-builder/internal/database"
)

func TestRunIssuesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "builder-secret")

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--issue-token", "ci", "--token-ttl", "1h"}, &out))

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("builder-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
}

func TestRunFailsOnMissingConfig(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &out))
	assert.Equal(t, 1, run([]string{"--no-such-flag"}, &out))
}

func TestRunClosesDatabase(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "builder.db"))

	var out bytes.Buffer
	// a user without data fails its stage but the batch itself succeeds
	require.Equal(t, 0, run([]string{"--user", "nobody"}, &out))

	assert.Error(t, database.GetDB().Ping(), "database left open after run")
}
