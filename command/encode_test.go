package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIndentsLikeClientsExpect(t *testing.T) {
	body, err := Encode(channelsJoinedResponse{ChannelsJoined: []string{"A", "B"}, User: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"channels_joined\": [\n        \"A\",\n        \"B\"\n    ],\n    \"user\": \"alice\"\n}", string(body))
}

func TestEncodeEmptyList(t *testing.T) {
	body, err := Encode(channelsResponse{Channels: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"channels\": []\n}", string(body))
}

func TestEncodeLeavesHTMLAlone(t *testing.T) {
	body, err := Encode(errorResponse{Error: ErrUsernameLength.Message})
	require.NoError(t, err)
	assert.Equal(t, `{
    "error": "The username isn't of the correct length (0 < len(username) <= 20)."
}`, string(body))
}

func TestEncodeEscapesNonASCII(t *testing.T) {
	body, err := Encode(successResponse{Success: "Successfully created José's account. 频道 😀"})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"success\": \"Successfully created Jos\\u00e9's account. \\u9891\\u9053 \\ud83d\\ude00\"\n}", string(body))
}

func TestEncodeFailure(t *testing.T) {
	_, err := Encode(make(chan int))
	assert.Error(t, err)
}
