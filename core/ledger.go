package core

import (
	"perkledger/core/events"
	"perkledger/core/state"
	"perkledger/crypto"
	"perkledger/native/loyalty"
	"perkledger/observability"
	"perkledger/storage"
)

// Ledger wires the loyalty registry and engines to a versioned store. Every
// mutation runs inside one optimistic transaction: the operation either
// commits all of its record updates and events or none of them, and commit
// conflicts with concurrent writers are retried with fresh reads.
type Ledger struct {
	store    *state.Store
	registry *loyalty.Registry
	engine   *loyalty.Engine
	bus      *events.Bus
}

// NewLedger creates a ledger over the provided database.
func NewLedger(db storage.Database) *Ledger {
	bus := events.NewBus(4096)
	store := state.NewStore(db)
	store.SetEmitter(bus)
	store.OnConflict = observability.CommitConflict
	return &Ledger{
		store:    store,
		registry: loyalty.NewRegistry(),
		engine:   loyalty.NewEngine(),
		bus:      bus,
	}
}

// Bus exposes the event bus for stream subscribers and indexers.
func (l *Ledger) Bus() *events.Bus { return l.bus }

// SetNowFunc overrides the time source of the registry and engines,
// primarily for deterministic tests.
func (l *Ledger) SetNowFunc(now func() uint64) {
	l.registry.SetNowFunc(now)
	l.engine.SetNowFunc(now)
}

// InitializeProgram creates the loyalty program owned by the authority.
func (l *Ledger) InitializeProgram(authority crypto.Address, name string, interestRateBp uint32) (loyalty.Address, error) {
	var addr loyalty.Address
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.registry.CreateProgram(txn, authority.Array(), name, interestRateBp)
		return err
	})
	return addr, err
}

// RegisterMerchant creates a merchant within the program.
func (l *Ledger) RegisterMerchant(authority crypto.Address, program loyalty.Address, name, category, avatar, description string, rewardRate uint64) (loyalty.Address, error) {
	var addr loyalty.Address
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.registry.RegisterMerchant(txn, authority.Array(), program, name, category, avatar, description, rewardRate)
		return err
	})
	return addr, err
}

// UpdateMerchant mutates a merchant's presentation fields and reward rate.
func (l *Ledger) UpdateMerchant(caller crypto.Address, merchant loyalty.Address, category, avatar, description string, rewardRate uint64) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.UpdateMerchant(txn, caller.Array(), merchant, category, avatar, description, rewardRate)
	})
}

// SetMerchantStatus toggles whether a merchant can issue rewards.
func (l *Ledger) SetMerchantStatus(caller crypto.Address, merchant loyalty.Address, active bool) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.SetMerchantStatus(txn, caller.Array(), merchant, active)
	})
}

// DestroyMerchant removes a merchant that owns no active rules or offers.
func (l *Ledger) DestroyMerchant(caller crypto.Address, merchant loyalty.Address) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.DestroyMerchant(txn, caller.Array(), merchant)
	})
}

// RegisterCustomer explicitly creates a customer account for a wallet.
func (l *Ledger) RegisterCustomer(wallet crypto.Address, program loyalty.Address) (loyalty.Address, error) {
	var addr loyalty.Address
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.registry.RegisterCustomer(txn, wallet.Array(), program)
		return err
	})
	return addr, err
}

// IssueReward credits the reward for a purchase and returns the issued
// amount.
func (l *Ledger) IssueReward(merchantAuthority crypto.Address, merchant loyalty.Address, wallet crypto.Address, purchaseAmount uint64) (uint64, error) {
	var issued uint64
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		issued, err = l.engine.IssueReward(txn, merchantAuthority.Array(), merchant, wallet.Array(), purchaseAmount)
		return err
	})
	if err == nil {
		observability.RewardIssued(issued)
	}
	return issued, err
}

// SetRewardRule creates or updates a merchant reward rule.
func (l *Ledger) SetRewardRule(caller crypto.Address, merchant loyalty.Address, ruleID uint64, kind loyalty.RuleKind, multiplier, minPurchase, startTime, endTime uint64) (loyalty.Address, error) {
	var addr loyalty.Address
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.registry.SetRewardRule(txn, caller.Array(), merchant, ruleID, kind, multiplier, minPurchase, startTime, endTime)
		return err
	})
	return addr, err
}

// ToggleRewardRule flips a rule's active flag.
func (l *Ledger) ToggleRewardRule(caller crypto.Address, merchant loyalty.Address, ruleID uint64) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.ToggleRewardRule(txn, caller.Array(), merchant, ruleID)
	})
}

// DeleteRewardRule removes a rule.
func (l *Ledger) DeleteRewardRule(caller crypto.Address, merchant loyalty.Address, ruleID uint64) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.DeleteRewardRule(txn, caller.Array(), merchant, ruleID)
	})
}

// CreateRedemptionOffer creates a merchant redemption offer.
func (l *Ledger) CreateRedemptionOffer(caller crypto.Address, merchant loyalty.Address, name, description, icon string, cost uint64, kind loyalty.OfferKind, quantityLimit, expiresAt uint64) (loyalty.Address, error) {
	var addr loyalty.Address
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.registry.CreateRedemptionOffer(txn, caller.Array(), merchant, name, description, icon, cost, kind, quantityLimit, expiresAt)
		return err
	})
	return addr, err
}

// UpdateRedemptionOffer mutates an offer's mutable fields.
func (l *Ledger) UpdateRedemptionOffer(caller crypto.Address, offer loyalty.Address, description, icon string, cost, quantityLimit, expiresAt uint64) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.UpdateRedemptionOffer(txn, caller.Array(), offer, description, icon, cost, quantityLimit, expiresAt)
	})
}

// ToggleRedemptionOffer flips an offer's active flag.
func (l *Ledger) ToggleRedemptionOffer(caller crypto.Address, offer loyalty.Address) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.ToggleRedemptionOffer(txn, caller.Array(), offer)
	})
}

// DeleteRedemptionOffer removes an offer.
func (l *Ledger) DeleteRedemptionOffer(caller crypto.Address, offer loyalty.Address) error {
	return l.store.Update(func(txn *state.Txn) error {
		return l.registry.DeleteRedemptionOffer(txn, caller.Array(), offer)
	})
}

// RedeemRewards burns tokens against an offer and returns the new voucher's
// address.
func (l *Ledger) RedeemRewards(wallet crypto.Address, merchant, offer loyalty.Address, seed uint64) (loyalty.Address, error) {
	var addr loyalty.Address
	var cost uint64
	err := l.store.Update(func(txn *state.Txn) error {
		var err error
		addr, err = l.engine.Redeem(txn, wallet.Array(), merchant, offer, seed)
		if err != nil {
			return err
		}
		voucher, err := loyalty.GetVoucher(txn, addr)
		if err != nil {
			return err
		}
		cost = voucher.Cost
		return nil
	})
	if err == nil {
		observability.TokensRedeemed(cost)
	}
	return addr, err
}

// SetVoucherStatus transitions a voucher's lifecycle state.
func (l *Ledger) SetVoucherStatus(caller crypto.Address, voucher loyalty.Address, status loyalty.VoucherStatus) error {
	err := l.store.Update(func(txn *state.Txn) error {
		return l.engine.SetVoucherStatus(txn, caller.Array(), voucher, status)
	})
	if err == nil {
		observability.VoucherTransition(status.String())
	}
	return err
}
