package chatapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "http://localhost:8080/chat"},
		{"http://localhost:8080/", "http://localhost:8080/chat"},
		{"https://example.test/chat", "https://example.test/chat"},
		{"", DefaultProductionBaseURL + "/chat"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ChatURL(tc.base), "base=%q", tc.base)
	}
}

func TestIsLocalHost(t *testing.T) {
	require.True(t, IsLocalHost("localhost"))
	require.True(t, IsLocalHost("LOCALHOST:5500"))
	require.True(t, IsLocalHost("127.0.0.1"))
	require.True(t, IsLocalHost("::1"))
	require.False(t, IsLocalHost("nafhan.github.io"))
	require.False(t, IsLocalHost(""))
}

func TestResolveBaseURL(t *testing.T) {
	require.Equal(t, DefaultLocalBaseURL, ResolveBaseURL("localhost", DefaultLocalBaseURL, DefaultProductionBaseURL))
	require.Equal(t, DefaultProductionBaseURL, ResolveBaseURL("nafhan.github.io", DefaultLocalBaseURL, DefaultProductionBaseURL))
}

func TestCandidates(t *testing.T) {
	got := Candidates(DefaultLocalBaseURL, DefaultProductionBaseURL, "")
	require.Equal(t, []string{
		"http://localhost:8080/chat",
		DefaultProductionBaseURL + "/chat",
	}, got)

	// A fallback equal to the primary is not tried twice.
	got = Candidates(DefaultProductionBaseURL, DefaultProductionBaseURL+"/chat")
	require.Equal(t, []string{DefaultProductionBaseURL + "/chat"}, got)
}
