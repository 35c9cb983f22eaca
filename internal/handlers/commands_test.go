package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lootmap/internal/commands"
)

func TestCommandHandler(t *testing.T) {
	env := newTestEnv(t)
	h := NewCommandHandler(commands.NewDispatcher(env.store, testLogger()), testLogger())

	tests := []struct {
		name           string
		method         string
		body           interface{}
		expectedStatus int
		expectedReply  string
	}{
		{
			name:           "add",
			method:         http.MethodPost,
			body:           CommandRequest{Text: "!loc add village 1 64 1"},
			expectedStatus: http.StatusOK,
			expectedReply:  "Added Village #1 at 1, 64, 1 (Available)\nTeleport: /tp 1 64 1",
		},
		{
			name:           "friendly error",
			method:         http.MethodPost,
			body:           CommandRequest{Text: "!loc get village 9"},
			expectedStatus: http.StatusOK,
			expectedReply:  "Invalid index 9 for 'Village'. Valid range: 1-1",
		},
		{
			name:           "not a command",
			method:         http.MethodPost,
			body:           CommandRequest{Text: "good morning"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad body",
			method:         http.MethodPost,
			body:           "{",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, tt.method, "/v1/commands", tt.body)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			if tt.expectedReply != "" {
				var resp CommandResponse
				decode(t, rr, &resp)
				assert.Equal(t, tt.expectedReply, resp.Reply)
			}
		})
	}
}
