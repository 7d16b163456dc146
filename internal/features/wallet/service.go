package wallet

import (
	"errors"
	"fmt"
	"time"

	"logos-backend/internal/store"
)

// Custom errors for wallet service
var (
	ErrNotEnoughTabs   = errors.New("not enough tabs")
	ErrDailyOnCooldown = errors.New("daily on cooldown")
)

// DailyOnCooldownError carries how long until the next claim. errors.Is
// matches it against ErrDailyOnCooldown.
type DailyOnCooldownError struct {
	Remaining time.Duration
}

func (e *DailyOnCooldownError) Error() string {
	return fmt.Sprintf("daily on cooldown, %d seconds remaining", int64(e.Remaining.Seconds()))
}

func (e *DailyOnCooldownError) Is(target error) bool {
	return target == ErrDailyOnCooldown
}

// Balance is a read-only view of a user's ledger.
type Balance struct {
	Tabs      int64
	LastDaily time.Time
}

type Service interface {
	ClaimDaily(user store.UserID, now time.Time) (int64, error)
	Debit(user store.UserID, amount int64) (int64, error)
	Credit(user store.UserID, amount int64) (int64, error)
	Balance(user store.UserID) (Balance, error)
}

type service struct {
	store    *store.Store
	reward   int64
	cooldown time.Duration
}

func NewService(st *store.Store, reward int64, cooldown time.Duration) Service {
	return &service{store: st, reward: reward, cooldown: cooldown}
}

// ClaimDaily credits the fixed daily reward. A second claim inside the
// cooldown window fails with the remaining wait; a claim at exactly the
// boundary succeeds. Returns the new balance.
func (s *service) ClaimDaily(user store.UserID, now time.Time) (int64, error) {
	return store.Write(s.store, user, store.Wallets, func(w *store.WalletUser) (int64, error) {
		if w.LastDailyTS != 0 {
			elapsed := now.Unix() - w.LastDailyTS
			if elapsed < int64(s.cooldown.Seconds()) {
				remaining := s.cooldown - time.Duration(elapsed)*time.Second
				return 0, &DailyOnCooldownError{Remaining: remaining}
			}
		}
		w.Tabs += s.reward
		w.LastDailyTS = now.Unix()
		return w.Tabs, nil
	})
}

// Debit removes amount from the balance, failing without mutation when the
// balance would go negative. Returns the new balance.
func (s *service) Debit(user store.UserID, amount int64) (int64, error) {
	return store.Write(s.store, user, store.Wallets, func(w *store.WalletUser) (int64, error) {
		if w.Tabs < amount {
			return 0, ErrNotEnoughTabs
		}
		w.Tabs -= amount
		return w.Tabs, nil
	})
}

// Credit adds amount to the balance, for grants outside the daily claim.
func (s *service) Credit(user store.UserID, amount int64) (int64, error) {
	return store.Write(s.store, user, store.Wallets, func(w *store.WalletUser) (int64, error) {
		w.Tabs += amount
		return w.Tabs, nil
	})
}

func (s *service) Balance(user store.UserID) (Balance, error) {
	return store.Read(s.store, user, store.Wallets, func(w *store.WalletUser) (Balance, error) {
		b := Balance{Tabs: w.Tabs}
		if w.LastDailyTS != 0 {
			b.LastDaily = time.Unix(w.LastDailyTS, 0).UTC()
		}
		return b, nil
	})
}
