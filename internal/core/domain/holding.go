package domain

import "time"

// HoldingAccount custodies a balance of one asset for one owner. Balances
// move only through the vault inside an atomic unit.
type HoldingAccount struct {
	Address   Address   `json:"address"`
	Owner     Identity  `json:"owner"`
	Asset     AssetID   `json:"asset"`
	Balance   uint64    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
