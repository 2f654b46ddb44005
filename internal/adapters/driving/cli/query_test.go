package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkcube-team/cuby/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasTopFlag(t *testing.T) {
	flag := queryCmd.Flags().Lookup("top")
	require.NotNil(t, flag, "top flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestQueryCmd_PrintsResults(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "what is alpha"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "notes.txt")
	assert.Contains(t, buf.String(), "alpha beta gamma")
	assert.Contains(t, buf.String(), "0.9100")
	assert.Equal(t, "what is alpha", mock.lastQuery)
	assert.Equal(t, 0, mock.lastK)
}

func TestQueryCmd_PassesTopFlag(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "-k", "3", "alpha"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryTopK = 0
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, 3, mock.lastK)
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "--json", "alpha"})
	defer func() {
		rootCmd.SetArgs(nil)
		queryJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)

	var out []queryResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "doc-1", out[0].DocumentID)
	assert.Equal(t, "notes.txt", out[0].DocumentName)
	assert.InDelta(t, 0.91, out[0].Score, 1e-9)
}

func TestQueryCmd_NoResults(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.results = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"query", "nothing"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No matching chunks")
}

func TestQueryCmd_RetrievalDisabled(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.err = domain.ErrModelUnavailable

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "alpha"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval is disabled")
}
