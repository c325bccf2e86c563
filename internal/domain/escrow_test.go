package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEscrowBook_DepositAccumulates(t *testing.T) {
	bb := NewEscrowBook()

	bb.Deposit("buyer1", Currency("DDT"), decimal.NewFromInt(100))
	bb.Deposit("buyer1", Currency("DDT"), decimal.NewFromInt(400))

	e, ok := bb.Lookup("buyer1", Currency("DDT"))
	if !ok {
		t.Fatal("entry should exist")
	}
	if !e.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Amount = %v, want 500", e.Amount)
	}
	if !bb.TotalDeposited(Currency("DDT")).Equal(decimal.NewFromInt(500)) {
		t.Errorf("TotalDeposited = %v, want 500", bb.TotalDeposited(Currency("DDT")))
	}

	bb.VerifyAll()
}

func TestEscrowBook_PerCurrencyEntries(t *testing.T) {
	bb := NewEscrowBook()

	bb.Deposit("buyer2", Currency("DDT"), decimal.NewFromInt(300))
	bb.Deposit("buyer2", Native, decimal.NewFromInt(2000))

	entries := bb.EntriesFor("buyer2")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	ddt, _ := bb.Lookup("buyer2", Currency("DDT"))
	native, _ := bb.Lookup("buyer2", Native)
	if !ddt.Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("DDT amount = %v, want 300", ddt.Amount)
	}
	if !native.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("native amount = %v, want 2000", native.Amount)
	}
}

func TestEscrowBook_WithdrawZeroesAndMarks(t *testing.T) {
	bb := NewEscrowBook()

	bb.Deposit("buyer1", Currency("DDT"), decimal.NewFromInt(500))
	bb.Withdraw("buyer1", Currency("DDT"), decimal.NewFromInt(500))

	e, _ := bb.Lookup("buyer1", Currency("DDT"))
	if !e.Amount.IsZero() {
		t.Errorf("Amount = %v, want 0", e.Amount)
	}
	if !e.Withdrawn {
		t.Error("entry should be marked withdrawn")
	}
	if !bb.TotalWithdrawn(Currency("DDT")).Equal(decimal.NewFromInt(500)) {
		t.Errorf("TotalWithdrawn = %v, want 500", bb.TotalWithdrawn(Currency("DDT")))
	}

	bb.VerifyAll()
}

func TestEscrowBook_PartialWithdrawKeepsRemainder(t *testing.T) {
	bb := NewEscrowBook()

	// winner deposited 100 then 400; 400 won, 100 refundable
	bb.Deposit("winner", Currency("DDT"), decimal.NewFromInt(500))
	bb.Withdraw("winner", Currency("DDT"), decimal.NewFromInt(100))

	e, _ := bb.Lookup("winner", Currency("DDT"))
	if !e.Amount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("Amount = %v, want 400", e.Amount)
	}
	if e.Withdrawn {
		t.Error("entry with remaining funds should not be marked withdrawn")
	}

	bb.VerifyAll()
}

func TestEscrowBook_DebitInsufficientPanics(t *testing.T) {
	bb := NewEscrowBook()
	bb.Deposit("buyer1", Native, decimal.NewFromInt(10))

	defer func() {
		if r := recover(); r == nil {
			t.Error("over-withdrawal should panic")
		}
	}()
	bb.Withdraw("buyer1", Native, decimal.NewFromInt(11))
}

func TestEscrowBook_RestoreAfterFailedPayout(t *testing.T) {
	bb := NewEscrowBook()

	bb.Deposit("buyer1", Native, decimal.NewFromInt(100))
	bb.Withdraw("buyer1", Native, decimal.NewFromInt(100))
	bb.Restore("buyer1", Native, decimal.NewFromInt(100))

	e, _ := bb.Lookup("buyer1", Native)
	if !e.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount = %v, want 100", e.Amount)
	}
	if e.Withdrawn {
		t.Error("restored entry should not be marked withdrawn")
	}

	bb.VerifyAll()
}
