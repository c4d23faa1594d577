package quota

import (
	"context"
	"errors"
	"fmt"
)

// DefaultReferralBonus is the allotment increment granted to both sides of a
// redeemed referral.
const DefaultReferralBonus = 5

var (
	ErrCodeNotFound    = errors.New("referral code not found")
	ErrAlreadyRedeemed = errors.New("identity has already redeemed a referral code")
	ErrSelfReferral    = errors.New("cannot redeem your own referral code")
)

// ReferralStore is the persistence contract for referral redemption.
// RecordRedemption must atomically insert the redemption row and both bonus
// grants; the unique constraint on the referee identity is the once-only gate.
type ReferralStore interface {
	ReferralCodeOwner(ctx context.Context, code string) (identity string, err error)
	HasRedeemed(ctx context.Context, referee string) (bool, error)
	RecordRedemption(ctx context.Context, code, referrer, referee string, bonus int) error
}

// Referrals grants bonus allotments when a referral code is redeemed.
type Referrals struct {
	Store ReferralStore
	Bonus int
}

func (r *Referrals) bonus() int {
	if r.Bonus > 0 {
		return r.Bonus
	}
	return DefaultReferralBonus
}

// Redeem grants the configured bonus to both the code's owner and the
// redeeming identity, exactly once per referee.
func (r *Referrals) Redeem(ctx context.Context, code string, referee Identity) error {
	owner, err := r.Store.ReferralCodeOwner(ctx, code)
	if err != nil {
		return err
	}
	key := referee.Key()
	if owner == key {
		return ErrSelfReferral
	}
	redeemed, err := r.Store.HasRedeemed(ctx, key)
	if err != nil {
		return fmt.Errorf("check prior redemption: %w", err)
	}
	if redeemed {
		return ErrAlreadyRedeemed
	}
	return r.Store.RecordRedemption(ctx, code, owner, key, r.bonus())
}
