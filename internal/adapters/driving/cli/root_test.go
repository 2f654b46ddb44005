package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkcube-team/cuby/internal/core/ports/driving"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "cuby", rootCmd.Use)
}

func TestRootCmd_HasVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"knowledge", "query", "talk", "watch", "mcp", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSetServices(t *testing.T) {
	prevKnowledge := knowledgeService
	prevConfig := configStore
	prevSession := newSession
	defer func() {
		knowledgeService = prevKnowledge
		configStore = prevConfig
		newSession = prevSession
	}()

	mock := &mockKnowledgeService{}
	factory := func(_ context.Context, _ SessionOptions) (driving.SessionController, error) {
		return &mockSessionController{}, nil
	}
	SetServices(Services{Knowledge: mock, NewSession: factory})

	assert.Equal(t, mock, knowledgeService)
	assert.NotNil(t, newSession)
	assert.Nil(t, configStore)
}
