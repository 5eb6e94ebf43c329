package allocation

import (
	"github.com/shopspring/decimal"
	"github.com/tuneable/tipledger/internal/domain/content"
)

// Tolerance within which a share total is accepted as 100 without
// normalization.
var shareTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// PayeeShare is one payee's computed integer share of a tip
type PayeeShare struct {
	Share  content.OwnershipShare
	Amount int64 // Minor units
}

// Split is the result of dividing a tip between payees and the platform.
// The conservation invariant holds exactly: sum of payee amounts plus
// PlatformTake equals the tip amount, with no unit lost to rounding.
type Split struct {
	PayeeShares  []PayeeShare
	CreatorPool  int64
	PlatformTake int64
	Normalized   bool // True when share percentages did not sum to 100 and were rescaled
}

// SplitTip divides tipAmount between the payees in shares and the platform.
// creatorSharePercent is the configured creator/platform split (e.g. 70).
// Shares with non-positive percentages are ignored. An empty share set makes
// the whole tip platform revenue; a non-empty set with no positive
// percentage is ErrUnresolvedPayee. Percentages not summing to 100 (beyond
// ±0.01) are proportionally normalized rather than rejected, since upstream
// data entry errors must not block a tip.
func SplitTip(tipAmount int64, creatorSharePercent int, shares []content.OwnershipShare) (*Split, error) {
	if tipAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	if len(shares) == 0 {
		return &Split{PlatformTake: tipAmount}, nil
	}

	positive := make([]content.OwnershipShare, 0, len(shares))
	total := decimal.Zero
	for _, s := range shares {
		if s.Percentage <= 0 {
			continue
		}
		positive = append(positive, s)
		total = total.Add(decimal.NewFromFloat(s.Percentage))
	}
	if len(positive) == 0 {
		return nil, ErrUnresolvedPayee
	}

	normalized := total.Sub(oneHundred).Abs().GreaterThan(shareTolerance)

	amount := decimal.NewFromInt(tipAmount)
	creatorPool := amount.Mul(decimal.NewFromInt(int64(creatorSharePercent))).Div(oneHundred).Round(0)

	result := &Split{
		PayeeShares: make([]PayeeShare, 0, len(positive)),
		CreatorPool: creatorPool.IntPart(),
		Normalized:  normalized,
	}

	var allocated int64
	for _, s := range positive {
		pct := decimal.NewFromFloat(s.Percentage)
		if normalized {
			pct = pct.Mul(oneHundred).Div(total)
		}
		payeeAmount := creatorPool.Mul(pct).Div(oneHundred).Round(0).IntPart()
		result.PayeeShares = append(result.PayeeShares, PayeeShare{Share: s, Amount: payeeAmount})
		allocated += payeeAmount
	}

	// Rounding can overshoot the tip by a unit or two; shave the largest
	// shares until the total fits so that conservation holds exactly.
	for allocated > tipAmount {
		largest := 0
		for i := range result.PayeeShares {
			if result.PayeeShares[i].Amount > result.PayeeShares[largest].Amount {
				largest = i
			}
		}
		result.PayeeShares[largest].Amount--
		allocated--
	}

	result.PlatformTake = tipAmount - allocated
	return result, nil
}
