package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "chat-generale", want: "chat-generale"},
		{name: "dots and hashes", in: "clan.name#1", want: "clan_name_1"},
		{name: "brackets and dollar", in: "[x]$y", want: "_x__y"},
		{name: "slash", in: "a/b", want: "a_b"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSegment(tt.in))
		})
	}
}

func TestSectionPath(t *testing.T) {
	assert.Equal(t, "messages/chat-generale", SectionPath("messages", "chat-generale"))
	assert.Equal(t, "messages/weird_section", SectionPath("messages", "weird#section"))
}

func TestClanSectionPath(t *testing.T) {
	path, err := ClanSectionPath("threads", "I Guerrieri", "proposte")
	require.NoError(t, err)
	assert.Equal(t, "threads/clan/I Guerrieri/proposte", path)

	path, err = ClanSectionPath("threads", "Clan.Alpha#1", "proposte")
	require.NoError(t, err)
	assert.Equal(t, "threads/clan/Clan_Alpha_1/proposte", path)
}

func TestClanSectionPathUnavailable(t *testing.T) {
	_, err := ClanSectionPath("threads", "", "proposte")
	assert.ErrorIs(t, err, ErrPathUnavailable)
}
