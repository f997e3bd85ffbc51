package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ConfigFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "default", args: []string{}, want: ""},
		{name: "separate value", args: []string{"--config", "/etc/webprobe.yaml"}, want: "/etc/webprobe.yaml"},
		{name: "inline value", args: []string{"--config=poller.yaml"}, want: "poller.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			called := false
			cmd := newRootCmd(func(_ context.Context, configPath string) error {
				called = true
				got = configPath
				return nil
			})
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.ExecuteContext(context.Background()))
			assert.True(t, called)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCmd_PassesContextAndError(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "poller")
	errRun := errors.New("boom")

	cmd := newRootCmd(func(ctx context.Context, _ string) error {
		assert.Equal(t, "poller", ctx.Value(ctxKey{}))
		return errRun
	})
	cmd.SetArgs([]string{})

	assert.ErrorIs(t, cmd.ExecuteContext(ctx), errRun)
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	called := false
	cmd := newRootCmd(func(context.Context, string) error {
		called = true
		return nil
	})
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
	assert.False(t, called)

	cmd = newRootCmd(func(context.Context, string) error { return nil })
	cmd.SetArgs([]string{"--unknown"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
