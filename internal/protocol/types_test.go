package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Authentication error", true},
		{"Authentication error: No token provided", true},
		{"Authentication error: Invalid token", true},
		{"Authentication error: Token expired", true},
		{"dial tcp: connection refused", false},
		{"websocket: bad handshake", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAuthError(tc.msg), tc.msg)
	}
}

func TestUserEventUnionDecodes(t *testing.T) {
	var ev UserEvent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"user_state_changed","userId":7,"status":"dnd","isConnected":true}`), &ev))
	assert.Equal(t, UserEventStateChanged, ev.Type)
	assert.Equal(t, 7, ev.UserID)
	assert.Equal(t, StatusDND, ev.Status)
	assert.Nil(t, ev.User)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"profile","user":{"id":1,"nick":"alice","status":"active"}}`), &ev))
	require.NotNil(t, ev.User)
	assert.Equal(t, "alice", ev.User.Nick)
}

func TestChannelRosterDecodesAsMap(t *testing.T) {
	raw := `{"id":1,"ownerId":3,"name":"general","members":{"10":{"id":10,"userId":100,"nickname":"alice","receivedKickVotes":[5,6]}}}`

	var ch Channel
	require.NoError(t, json.Unmarshal([]byte(raw), &ch))
	m, ok := ch.Members[10]
	require.True(t, ok)
	assert.Equal(t, []int{5, 6}, m.ReceivedKickVotes)
}
