package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{Secret: "test-secret", TokenTTL: time.Hour}, nil)
}

func TestLogin_WrongCredentialsRejected(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Register("alice", "correct-horse", "client-alice"))

	_, ok := s.Login("alice", "wrong-password")

	assert.False(t, ok)
}

func TestLogin_ResolvesToClientID(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Register("alice", "correct-horse", "client-alice"))

	token, ok := s.Login("alice", "correct-horse")
	require.True(t, ok)

	clientID, ok := s.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, "client-alice", clientID)
}

func TestLogin_IsIdempotentForSameUser(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Register("alice", "correct-horse", "client-alice"))

	first, ok := s.Login("alice", "correct-horse")
	require.True(t, ok)
	second, ok := s.Login("alice", "correct-horse")
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Register("alice", "correct-horse", "client-alice"))
	token, _ := s.Login("alice", "correct-horse")

	ok := s.Logout(token)
	require.True(t, ok)

	_, stillLive := s.Resolve(token)
	assert.False(t, stillLive)
}

func TestLogout_UnknownTokenReturnsFalse(t *testing.T) {
	s := newStore(t)
	assert.False(t, s.Logout("never-issued"))
}

func TestResolve_UnknownTokenRejected(t *testing.T) {
	s := newStore(t)
	_, ok := s.Resolve("garbage")
	assert.False(t, ok)
}
