package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs string
		wantOK   bool
	}{
		{"/topic Kinematics", "topic", "Kinematics", true},
		{"/TOPIC  Ionic Equilibrium ", "topic", "Ionic Equilibrium", true},
		{"/quit", "quit", "", true},
		{"/", "", "", false},
		{"B", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, args, ok := parseCommand(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRouter_Route(t *testing.T) {
	var got []string
	record := func(prefix string) HandlerFunc {
		return func(_ context.Context, args string) error {
			got = append(got, prefix+":"+args)
			return nil
		}
	}

	r := NewRouter(record("text"), nil)
	r.Register(Command{Name: "quit", Aliases: []string{"q", "exit"}}, record("quit"))
	r.Register(Command{Name: "topic", Usage: "<name>"}, record("topic"))

	ctx := context.Background()
	require.NoError(t, r.Route(ctx, "/topic optics"))
	require.NoError(t, r.Route(ctx, "  /Q  "))
	require.NoError(t, r.Route(ctx, "45 degrees"))
	require.NoError(t, r.Route(ctx, ""))
	assert.ErrorIs(t, r.Route(ctx, "/dance"), ErrUnknownCommand)

	assert.Equal(t, []string{"topic:optics", "quit:", "text:45 degrees", "text:"}, got)

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "quit", cmds[0].Name)
	assert.Equal(t, "topic", cmds[1].Name)
}
