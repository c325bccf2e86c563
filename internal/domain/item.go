package domain

import "fmt"

// Party is a pre-verified caller identity (seller, bidder or the auction
// itself). Authentication happens outside the engine.
type Party string

func (p Party) String() string {
	return string(p)
}

// ItemHandle is the opaque handle of a listed non-fungible item:
// a collection identifier plus the token id inside it. The engine never
// looks inside the handle; it only passes it to the custody collaborator.
type ItemHandle struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
}

func (h ItemHandle) String() string {
	return fmt.Sprintf("%s/%d", h.Collection, h.TokenID)
}

// IsZero reports whether the handle is unset.
func (h ItemHandle) IsZero() bool {
	return h.Collection == "" && h.TokenID == 0
}
