package mimic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logos-backend/internal/store"
)

type fakeRelay struct {
	mu    sync.Mutex
	posts []struct {
		Channel store.ChannelID
		As      store.Mimic
		Text    string
	}
}

func (f *fakeRelay) Post(_ context.Context, channel store.ChannelID, as store.Mimic, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, struct {
		Channel store.ChannelID
		As      store.Mimic
		Text    string
	}{channel, as, text})
	return nil
}

func newTestService() (Service, *fakeRelay) {
	relay := &fakeRelay{}
	return NewService(store.New(nil), relay), relay
}

const user = store.UserID(10)

func TestAddActivatesAndResolves(t *testing.T) {
	// Scenario: empty store, add Fox and Wolf, activate Fox, resolve.
	svc, _ := newTestService()

	_, err := svc.Add(user, "Fox", "https://example.com/fox.png")
	require.NoError(t, err)
	_, err = svc.Add(user, "Wolf", "")
	require.NoError(t, err)

	// Adding also activates, so Wolf is active now; switch back to Fox.
	require.NoError(t, svc.SetActive(user, "Fox"))

	m, err := svc.ResolveEffective(user, 5)
	require.NoError(t, err)
	assert.Equal(t, "Fox", m.Name)
	assert.Equal(t, "https://example.com/fox.png", m.AvatarURL)
}

func TestChannelOverrideTakesPrecedence(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)
	_, err = svc.Add(user, "Wolf", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(user, "Fox"))

	require.NoError(t, svc.SetChannelOverride(user, 5, "Wolf"))

	m, err := svc.ResolveEffective(user, 5)
	require.NoError(t, err)
	assert.Equal(t, "Wolf", m.Name)

	// Other channels still fall back to the active mimic.
	m, err = svc.ResolveEffective(user, 6)
	require.NoError(t, err)
	assert.Equal(t, "Fox", m.Name)

	require.NoError(t, svc.ClearChannelOverride(user, 5))
	m, err = svc.ResolveEffective(user, 5)
	require.NoError(t, err)
	assert.Equal(t, "Fox", m.Name)
}

func TestDeleteActiveClearsActiveReference(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(user, "Fox"))

	_, err = svc.ResolveEffective(user, 5)
	assert.ErrorIs(t, err, ErrNoActiveMimic)
}

func TestDeleteDropsBoundOverridesAndAutoMode(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)
	_, err = svc.Add(user, "Wolf", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(user, "Wolf"))
	require.NoError(t, svc.SetChannelOverride(user, 5, "Wolf"))
	require.NoError(t, svc.SetAutoMode(user, true))

	require.NoError(t, svc.Delete(user, "Wolf"))

	// Fox still exists but nothing points at Wolf anymore.
	_, err = svc.ResolveEffective(user, 5)
	assert.ErrorIs(t, err, ErrNoActiveMimic)

	err = svc.RelayAuto(context.Background(), user, 5, "hi")
	assert.ErrorIs(t, err, ErrAutoModeOff)
}

func TestDeleteUnknownMimic(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(user, "Bear"), ErrMimicNotFound)
	assert.ErrorIs(t, svc.SetActive(user, "Bear"), ErrMimicNotFound)
	assert.ErrorIs(t, svc.SetChannelOverride(user, 5, "Bear"), ErrMimicNotFound)
}

func TestAddUpsertsByCaseInsensitiveName(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "old.png")
	require.NoError(t, err)
	_, err = svc.Add(user, "fox", "new.png")
	require.NoError(t, err)

	entries, err := svc.List(user)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new.png", entries[0].Mimic.AvatarURL)
	assert.True(t, entries[0].Active)
}

func TestListMarksActive(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)
	_, err = svc.Add(user, "Wolf", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(user, "Fox"))

	entries, err := svc.List(user)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byName := map[string]bool{}
	for _, e := range entries {
		byName[e.Mimic.Name] = e.Active
	}
	assert.True(t, byName["Fox"])
	assert.False(t, byName["Wolf"])
}

func TestListUnknownUser(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.List(99)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestSetAutoModeRequiresActiveMimic(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(user, "Fox"))

	assert.ErrorIs(t, svc.SetAutoMode(user, true), ErrNoActiveMimic)
	assert.NoError(t, svc.SetAutoMode(user, false))
}

func TestImpersonatePostsAsEffectiveMimic(t *testing.T) {
	svc, relay := newTestService()
	_, err := svc.Add(user, "Fox", "fox.png")
	require.NoError(t, err)

	require.NoError(t, svc.Impersonate(context.Background(), user, 5, "hello"))

	require.Len(t, relay.posts, 1)
	assert.Equal(t, store.ChannelID(5), relay.posts[0].Channel)
	assert.Equal(t, "Fox", relay.posts[0].As.Name)
	assert.Equal(t, "hello", relay.posts[0].Text)
}

func TestRelayAutoPostsOnlyWithAutoMode(t *testing.T) {
	svc, relay := newTestService()
	_, err := svc.Add(user, "Fox", "")
	require.NoError(t, err)

	err = svc.RelayAuto(context.Background(), user, 5, "passive")
	assert.ErrorIs(t, err, ErrAutoModeOff)
	assert.Empty(t, relay.posts)

	require.NoError(t, svc.SetAutoMode(user, true))
	require.NoError(t, svc.RelayAuto(context.Background(), user, 5, "passive"))
	require.Len(t, relay.posts, 1)
	assert.Equal(t, "Fox", relay.posts[0].As.Name)
}
