package infra

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/caryxiao/NFT-Auction/internal/domain"
)

// InMemoryVault is a fund vault backed by in-process balances. It stands
// in for the chain-side value movement in local runs and tests.
type InMemoryVault struct {
	mu       sync.Mutex
	balances map[domain.Party]map[domain.Currency]decimal.Decimal
}

// NewInMemoryVault creates an empty vault.
func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{
		balances: make(map[domain.Party]map[domain.Currency]decimal.Decimal),
	}
}

// Mint credits a party's external balance (test/bootstrap helper).
func (v *InMemoryVault) Mint(party domain.Party, currency domain.Currency, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credit(party, currency, amount)
}

// Balance returns a party's external balance.
func (v *InMemoryVault) Balance(party domain.Party, currency domain.Currency) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	if byCurrency, ok := v.balances[party]; ok {
		if b, ok := byCurrency[currency]; ok {
			return b
		}
	}
	return decimal.Zero
}

// Deposit implements domain.FundVault: the amount leaves the party's
// balance and enters escrow. Fails when the party cannot cover it.
func (v *InMemoryVault) Deposit(ctx context.Context, from domain.Party, currency domain.Currency, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	byCurrency, ok := v.balances[from]
	if !ok {
		return fmt.Errorf("insufficient funds: %s has nothing, needs %s %s", from, amount, currency)
	}
	have := byCurrency[currency]
	if amount.GreaterThan(have) {
		return fmt.Errorf("insufficient funds: %s has %s %s, needs %s", from, have, currency, amount)
	}
	byCurrency[currency] = have.Sub(amount)
	return nil
}

// Payout implements domain.FundVault: escrowed funds return to a party.
func (v *InMemoryVault) Payout(ctx context.Context, to domain.Party, currency domain.Currency, amount decimal.Decimal) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credit(to, currency, amount)
	return nil
}

func (v *InMemoryVault) credit(party domain.Party, currency domain.Currency, amount decimal.Decimal) {
	byCurrency, ok := v.balances[party]
	if !ok {
		byCurrency = make(map[domain.Currency]decimal.Decimal)
		v.balances[party] = byCurrency
	}
	byCurrency[currency] = byCurrency[currency].Add(amount)
}

// InMemoryCustody tracks item ownership in process.
type InMemoryCustody struct {
	mu     sync.Mutex
	owners map[domain.ItemHandle]domain.Party
}

// NewInMemoryCustody creates an empty custody registry.
func NewInMemoryCustody() *InMemoryCustody {
	return &InMemoryCustody{owners: make(map[domain.ItemHandle]domain.Party)}
}

// SetOwner records the initial owner of an item (test/bootstrap helper).
func (c *InMemoryCustody) SetOwner(item domain.ItemHandle, owner domain.Party) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[item] = owner
}

// OwnerOf returns the current owner of an item.
func (c *InMemoryCustody) OwnerOf(item domain.ItemHandle) (domain.Party, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[item]
	return owner, ok
}

// TransferItem implements domain.ItemCustody. The transfer fails unless
// from is the current owner.
func (c *InMemoryCustody) TransferItem(ctx context.Context, from, to domain.Party, item domain.ItemHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[item]
	if !ok {
		return fmt.Errorf("unknown item %s", item)
	}
	if owner != from {
		return fmt.Errorf("item %s owned by %s, not %s", item, owner, from)
	}
	c.owners[item] = to
	return nil
}
