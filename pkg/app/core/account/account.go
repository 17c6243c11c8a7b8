package account

import (
	"fmt"
	"time"

	"github.com/uhyunpark/cryptex/pkg/app/core/wallet"
)

// User is a registered exchange user. The wallet is owned exclusively by
// this user and is never shared.
type User struct {
	ID        string // uuid
	Name      string
	Email     string // unique across the exchange
	Wallet    *wallet.Wallet
	CreatedAt time.Time
}

func (u *User) String() string {
	return fmt.Sprintf("User %s (%s <%s>)", u.ID, u.Name, u.Email)
}

// Profile is the read-only view of a user, safe to hand to callers
type Profile struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	CreatedAt time.Time       `json:"createdAt"`
	Balances  wallet.Balances `json:"balances"`
}

// Profile snapshots the user together with the wallet balances
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		Balances:  u.Wallet.Snapshot(),
	}
}
