package mimic

import (
	"context"
	"errors"
	"strings"

	"logos-backend/internal/store"
)

// Custom errors for mimic service
var (
	ErrMimicNotFound = errors.New("mimic not found")
	ErrNoActiveMimic = errors.New("no active mimic set")
	ErrAutoModeOff   = errors.New("auto mode is off")
)

// Relay posts a message to a channel under an impersonation identity. The
// chat-platform webhook client behind it is an external collaborator.
type Relay interface {
	Post(ctx context.Context, channel store.ChannelID, as store.Mimic, text string) error
}

// Entry is one mimic in a listing, flagged when it is the active one.
type Entry struct {
	Mimic  store.Mimic
	Active bool
}

type Service interface {
	Add(user store.UserID, name, avatarURL string) (store.Mimic, error)
	List(user store.UserID) ([]Entry, error)
	Delete(user store.UserID, name string) error
	SetActive(user store.UserID, name string) error
	SetChannelOverride(user store.UserID, channel store.ChannelID, name string) error
	ClearChannelOverride(user store.UserID, channel store.ChannelID) error
	ResolveEffective(user store.UserID, channel store.ChannelID) (store.Mimic, error)
	SetAutoMode(user store.UserID, enabled bool) error
	Impersonate(ctx context.Context, user store.UserID, channel store.ChannelID, text string) error
	RelayAuto(ctx context.Context, user store.UserID, channel store.ChannelID, text string) error
}

type service struct {
	store *store.Store
	relay Relay
}

func NewService(st *store.Store, relay Relay) Service {
	return &service{store: st, relay: relay}
}

// Add upserts a mimic by case-insensitive name and makes it the active one.
func (s *service) Add(user store.UserID, name, avatarURL string) (store.Mimic, error) {
	return store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (store.Mimic, error) {
		m := store.Mimic{Name: name, AvatarURL: avatarURL}
		replaced := false
		for i, existing := range mu.Mimics {
			if strings.EqualFold(existing.Name, name) {
				mu.Mimics[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			mu.Mimics = append(mu.Mimics, m)
		}
		mu.Active = m.Name
		return m, nil
	})
}

func (s *service) List(user store.UserID) ([]Entry, error) {
	return store.Read(s.store, user, store.Mimics, func(mu *store.MimicUser) ([]Entry, error) {
		out := make([]Entry, 0, len(mu.Mimics))
		for _, m := range mu.Mimics {
			out = append(out, Entry{
				Mimic:  m,
				Active: mu.Active != "" && strings.EqualFold(m.Name, mu.Active),
			})
		}
		return out, nil
	})
}

// Delete removes a mimic. If it was active the active reference is cleared
// and auto mode is switched off, so the passive relay path can never resolve
// a dangling identity. Channel overrides bound to it are dropped as well.
func (s *service) Delete(user store.UserID, name string) error {
	_, err := store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		idx := -1
		for i, m := range mu.Mimics {
			if strings.EqualFold(m.Name, name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return struct{}{}, ErrMimicNotFound
		}
		removed := mu.Mimics[idx]
		mu.Mimics = append(mu.Mimics[:idx], mu.Mimics[idx+1:]...)

		if strings.EqualFold(mu.Active, removed.Name) {
			mu.Active = ""
			mu.AutoMode = false
		}
		for ch, n := range mu.ChannelOverride {
			if strings.EqualFold(n, removed.Name) {
				delete(mu.ChannelOverride, ch)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *service) SetActive(user store.UserID, name string) error {
	_, err := store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		m, ok := mu.Find(name)
		if !ok {
			return struct{}{}, ErrMimicNotFound
		}
		mu.Active = m.Name
		return struct{}{}, nil
	})
	return err
}

func (s *service) SetChannelOverride(user store.UserID, channel store.ChannelID, name string) error {
	_, err := store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		m, ok := mu.Find(name)
		if !ok {
			return struct{}{}, ErrMimicNotFound
		}
		if mu.ChannelOverride == nil {
			mu.ChannelOverride = make(map[store.ChannelID]string)
		}
		mu.ChannelOverride[channel] = m.Name
		return struct{}{}, nil
	})
	return err
}

func (s *service) ClearChannelOverride(user store.UserID, channel store.ChannelID) error {
	_, err := store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		delete(mu.ChannelOverride, channel)
		return struct{}{}, nil
	})
	return err
}

// ResolveEffective returns the identity to post under in a channel: the
// channel override when one is set, otherwise the active mimic.
func (s *service) ResolveEffective(user store.UserID, channel store.ChannelID) (store.Mimic, error) {
	return store.Read(s.store, user, store.Mimics, func(mu *store.MimicUser) (store.Mimic, error) {
		return resolve(mu, channel)
	})
}

func resolve(mu *store.MimicUser, channel store.ChannelID) (store.Mimic, error) {
	if name, ok := mu.ChannelOverride[channel]; ok {
		if m, found := mu.Find(name); found {
			return m, nil
		}
	}
	if mu.Active == "" {
		return store.Mimic{}, ErrNoActiveMimic
	}
	m, ok := mu.Find(mu.Active)
	if !ok {
		return store.Mimic{}, ErrNoActiveMimic
	}
	return m, nil
}

func (s *service) SetAutoMode(user store.UserID, enabled bool) error {
	_, err := store.Write(s.store, user, store.Mimics, func(mu *store.MimicUser) (struct{}, error) {
		if enabled && mu.Active == "" {
			return struct{}{}, ErrNoActiveMimic
		}
		mu.AutoMode = enabled
		return struct{}{}, nil
	})
	return err
}

// Impersonate resolves the effective mimic for the channel and posts text
// through the relay under that identity.
func (s *service) Impersonate(ctx context.Context, user store.UserID, channel store.ChannelID, text string) error {
	m, err := s.ResolveEffective(user, channel)
	if err != nil {
		return err
	}
	return s.relay.Post(ctx, channel, m, text)
}

// RelayAuto is the passive path: called for ordinary inbound messages, it
// posts only when the user has auto mode enabled.
func (s *service) RelayAuto(ctx context.Context, user store.UserID, channel store.ChannelID, text string) error {
	m, err := store.Read(s.store, user, store.Mimics, func(mu *store.MimicUser) (store.Mimic, error) {
		if !mu.AutoMode {
			return store.Mimic{}, ErrAutoModeOff
		}
		return resolve(mu, channel)
	})
	if err != nil {
		return err
	}
	return s.relay.Post(ctx, channel, m, text)
}
