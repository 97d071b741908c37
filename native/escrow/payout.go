package escrow

import (
	"fmt"
	"math/big"
)

// Reserve is the processing buffer every CreateOrder must attach on top
// of the service amount. 10_000_000 base units equal 0.01 of a coin with
// nine decimals, the threshold the frontend wallets attach.
var Reserve = big.NewInt(10_000_000)

// Payout is the three-way settlement split computed at finalization.
// The components always sum to the order amount.
type Payout struct {
	Client   *big.Int
	Master   *big.Int
	Platform *big.Int
}

// Total returns the sum of the three components.
func (p Payout) Total() *big.Int {
	total := new(big.Int).Add(p.Client, p.Master)
	return total.Add(total, p.Platform)
}

// Outcome names the settlement branch selected by the two claims.
func Outcome(clientClaimsAbsent, masterClaimsAbsent bool) string {
	switch {
	case !clientClaimsAbsent && !masterClaimsAbsent:
		return "completed"
	case clientClaimsAbsent && masterClaimsAbsent:
		return "refunded"
	default:
		return "disputed"
	}
}

// Split maps the escrowed amount and the two attendance claims to the
// settlement split. Both parties present: the platform takes its
// commission and the master receives the rest. Both absent: the client
// is refunded in full and the commission is waived. Claims disagree: the
// commission is taken first and the net is divided evenly, with the odd
// unit of an uneven net going to the platform so value is conserved
// exactly.
func Split(amount *big.Int, commissionPercent uint8, clientClaimsAbsent, masterClaimsAbsent bool) (Payout, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Payout{}, fmt.Errorf("escrow: split amount must be positive")
	}
	if commissionPercent > 100 {
		return Payout{}, fmt.Errorf("escrow: commission percent out of range: %d", commissionPercent)
	}

	zero := func() *big.Int { return big.NewInt(0) }
	fee := new(big.Int).Mul(amount, big.NewInt(int64(commissionPercent)))
	fee.Div(fee, big.NewInt(100))

	switch {
	case !clientClaimsAbsent && !masterClaimsAbsent:
		// Service rendered: commission to the platform, rest to the master.
		return Payout{
			Client:   zero(),
			Master:   new(big.Int).Sub(amount, fee),
			Platform: fee,
		}, nil
	case clientClaimsAbsent && masterClaimsAbsent:
		// Mutually agreed no-show: full refund, commission waived.
		return Payout{
			Client:   new(big.Int).Set(amount),
			Master:   zero(),
			Platform: zero(),
		}, nil
	default:
		// Disputed: split the net evenly, odd unit to the platform.
		net := new(big.Int).Sub(amount, fee)
		half := new(big.Int).Div(net, big.NewInt(2))
		remainder := new(big.Int).Mod(net, big.NewInt(2))
		return Payout{
			Client:   half,
			Master:   new(big.Int).Set(half),
			Platform: new(big.Int).Add(fee, remainder),
		}, nil
	}
}
