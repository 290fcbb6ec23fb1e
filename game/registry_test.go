package game

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry()
	defer r.Close()

	s := r.Create(DefaultSettings())
	assert.Len(s.Code, 6)
	assert.Equal(1, r.Count())

	got, err := r.Get(s.Code)
	assert.NoError(err)
	assert.Same(s, got)

	got, err = r.Get(strings.ToUpper(s.Code))
	assert.NoError(err, "codes are matched case-insensitively")
	assert.Same(s, got)

	_, err = r.Get("zzzzzz")
	assert.ErrorIs(err, ErrGameNotFound)
}

func TestRegistryCodesAreUnique(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := r.Create(DefaultSettings())
		assert.False(t, seen[s.Code], "code %q issued twice", s.Code)
		seen[s.Code] = true
	}
}

func TestFindOpenPublic(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry()
	defer r.Close()

	assert.Nil(r.FindOpenPublic(), "empty directory")

	private := DefaultSettings()
	private.Private = true
	r.Create(private)
	assert.Nil(r.FindOpenPublic(), "private lobbies are not matched")

	full := DefaultSettings()
	full.MaxPlayers = 2
	fullSession := r.Create(full)
	require.NoError(t, fullSession.AddPlayer(NewPlayer("one", "")))
	require.NoError(t, fullSession.AddPlayer(NewPlayer("two", "")))
	assert.Nil(r.FindOpenPublic(), "full lobbies are not matched")

	started := r.Create(DefaultSettings())
	admin := NewPlayer("admin", "")
	require.NoError(t, started.AddPlayer(admin))
	require.NoError(t, started.AddPlayer(NewPlayer("guest", "")))
	require.NoError(t, started.Start(admin.ID))
	assert.Nil(r.FindOpenPublic(), "running games are not matched")

	open := r.Create(DefaultSettings())
	assert.Same(open, r.FindOpenPublic())
}

func TestRegistryRemoveStopsSession(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry()
	defer r.Close()

	s := r.Create(DefaultSettings())
	r.Remove(s.Code)

	assert.Equal(0, r.Count())
	assert.Equal(Stopped, s.Status)
	_, err := r.Get(s.Code)
	assert.ErrorIs(err, ErrGameNotFound)
}

func TestSweepCollectsIdleEmptySessions(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry()
	defer r.Close()

	idle := r.Create(DefaultSettings())
	idle.UpdatedAt = time.Now().Add(-time.Hour)

	fresh := r.Create(DefaultSettings())

	occupied := r.Create(DefaultSettings())
	require.NoError(t, occupied.AddPlayer(NewPlayer("busy", "")))
	occupied.UpdatedAt = time.Now().Add(-time.Hour)

	var collected []*Session
	r.sweep(DefaultSessionIdle, func(s *Session) { collected = append(collected, s) })

	require.Len(t, collected, 1)
	assert.Same(idle, collected[0])
	assert.Equal(Stopped, idle.Status)
	assert.Equal(2, r.Count())
	_, err := r.Get(fresh.Code)
	assert.NoError(err)
	_, err = r.Get(occupied.Code)
	assert.NoError(err, "sessions with connected players survive the sweep")
}
