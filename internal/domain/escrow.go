package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EscrowEntry tracks funds held by an auction for one bidder in one
// currency. Amounts accumulate across that bidder's bids in the currency;
// the entry backing the active highest bid is never refundable while the
// bidder remains highest.
type EscrowEntry struct {
	Bidder     Party           `json:"bidder"`
	Currency   Currency        `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Refundable bool            `json:"refundable"`
	Withdrawn  bool            `json:"withdrawn"`
}

// Credit adds deposited funds to the entry.
func (e *EscrowEntry) Credit(amount decimal.Decimal) {
	if amount.IsNegative() {
		panic(fmt.Sprintf("ESCROW_CREDIT_NEGATIVE: %s %s %s", e.Bidder, e.Currency, amount))
	}
	e.Amount = e.Amount.Add(amount)
}

// Debit removes withdrawn funds from the entry. Panics if the entry does
// not hold enough; callers must have computed what is owed first.
func (e *EscrowEntry) Debit(amount decimal.Decimal) {
	if amount.GreaterThan(e.Amount) {
		panic(fmt.Sprintf("ESCROW_DEBIT_INSUFFICIENT: %s %s need %s, held %s",
			e.Bidder, e.Currency, amount, e.Amount))
	}
	e.Amount = e.Amount.Sub(amount)
}

// VerifyInvariant checks that the entry satisfies its invariants.
func (e *EscrowEntry) VerifyInvariant() {
	if e.Amount.IsNegative() {
		panic(fmt.Sprintf("ESCROW_INVARIANT_NEGATIVE_AMOUNT: %s %s = %s",
			e.Bidder, e.Currency, e.Amount))
	}
	if e.Withdrawn && !e.Amount.IsZero() {
		panic(fmt.Sprintf("ESCROW_INVARIANT_WITHDRAWN_NONZERO: %s %s = %s",
			e.Bidder, e.Currency, e.Amount))
	}
}

// EscrowBook manages one auction's escrow entries keyed by
// (bidder, currency), with per-currency deposit/withdrawal totals so the
// conservation invariant can be verified after every mutation.
type EscrowBook struct {
	entries   map[Party]map[Currency]*EscrowEntry
	deposited map[Currency]decimal.Decimal
	withdrawn map[Currency]decimal.Decimal
}

// NewEscrowBook creates an empty escrow book.
func NewEscrowBook() *EscrowBook {
	return &EscrowBook{
		entries:   make(map[Party]map[Currency]*EscrowEntry),
		deposited: make(map[Currency]decimal.Decimal),
		withdrawn: make(map[Currency]decimal.Decimal),
	}
}

// Get returns the entry for (bidder, currency), creating it if absent.
func (bb *EscrowBook) Get(bidder Party, currency Currency) *EscrowEntry {
	byCurrency, ok := bb.entries[bidder]
	if !ok {
		byCurrency = make(map[Currency]*EscrowEntry)
		bb.entries[bidder] = byCurrency
	}
	e, ok := byCurrency[currency]
	if !ok {
		e = &EscrowEntry{Bidder: bidder, Currency: currency}
		byCurrency[currency] = e
	}
	return e
}

// Lookup returns the entry for (bidder, currency) without creating it.
func (bb *EscrowBook) Lookup(bidder Party, currency Currency) (*EscrowEntry, bool) {
	byCurrency, ok := bb.entries[bidder]
	if !ok {
		return nil, false
	}
	e, ok := byCurrency[currency]
	return e, ok
}

// Deposit records funds moved into escrow for a bidder.
func (bb *EscrowBook) Deposit(bidder Party, currency Currency, amount decimal.Decimal) *EscrowEntry {
	e := bb.Get(bidder, currency)
	e.Credit(amount)
	e.Withdrawn = false
	bb.deposited[currency] = bb.total(bb.deposited, currency).Add(amount)
	return e
}

// Withdraw records funds moved out of escrow for a bidder.
func (bb *EscrowBook) Withdraw(bidder Party, currency Currency, amount decimal.Decimal) {
	e := bb.Get(bidder, currency)
	e.Debit(amount)
	if e.Amount.IsZero() {
		e.Withdrawn = true
	}
	bb.withdrawn[currency] = bb.total(bb.withdrawn, currency).Add(amount)
}

// Restore reverses a Withdraw after a failed external transfer.
func (bb *EscrowBook) Restore(bidder Party, currency Currency, amount decimal.Decimal) {
	e := bb.Get(bidder, currency)
	e.Credit(amount)
	e.Withdrawn = false
	bb.withdrawn[currency] = bb.total(bb.withdrawn, currency).Sub(amount)
}

func (bb *EscrowBook) total(m map[Currency]decimal.Decimal, currency Currency) decimal.Decimal {
	if v, ok := m[currency]; ok {
		return v
	}
	return decimal.Zero
}

// TotalDeposited returns the total ever deposited in a currency.
func (bb *EscrowBook) TotalDeposited(currency Currency) decimal.Decimal {
	return bb.total(bb.deposited, currency)
}

// TotalWithdrawn returns the total ever withdrawn in a currency.
func (bb *EscrowBook) TotalWithdrawn(currency Currency) decimal.Decimal {
	return bb.total(bb.withdrawn, currency)
}

// EntriesFor returns all entries owned by a bidder.
func (bb *EscrowBook) EntriesFor(bidder Party) []*EscrowEntry {
	byCurrency, ok := bb.entries[bidder]
	if !ok {
		return nil
	}
	result := make([]*EscrowEntry, 0, len(byCurrency))
	for _, e := range byCurrency {
		result = append(result, e)
	}
	return result
}

// VerifyAll checks invariants on every entry plus conservation: for each
// currency, the held sum must equal total deposited minus total withdrawn.
func (bb *EscrowBook) VerifyAll() {
	held := make(map[Currency]decimal.Decimal)
	for _, byCurrency := range bb.entries {
		for currency, e := range byCurrency {
			e.VerifyInvariant()
			held[currency] = bb.total(held, currency).Add(e.Amount)
		}
	}
	for currency := range bb.deposited {
		expect := bb.total(bb.deposited, currency).Sub(bb.total(bb.withdrawn, currency))
		if !bb.total(held, currency).Equal(expect) {
			panic(fmt.Sprintf("ESCROW_INVARIANT_CONSERVATION: %s held=%s expect=%s",
				currency, bb.total(held, currency), expect))
		}
	}
}

// Snapshot returns a copy of all entries (for state dump).
func (bb *EscrowBook) Snapshot() []EscrowEntry {
	var result []EscrowEntry
	for _, byCurrency := range bb.entries {
		for _, e := range byCurrency {
			result = append(result, *e)
		}
	}
	return result
}
