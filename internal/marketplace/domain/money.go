package domain

import "fmt"

// Amount is a fixed-point currency amount in micro-units.
// One coin equals 1,000,000 micro-units; all arithmetic stays in
// integers so fee splits are exact.
type Amount int64

// MicroPerUnit is the number of micro-units in one whole coin.
const MicroPerUnit = 1_000_000

// BpsDenominator is the basis-point denominator used for fee rates.
const BpsDenominator = 10_000

// String renders the amount as a decimal coin value, e.g. "8.500000".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/MicroPerUnit, v%MicroPerUnit)
}

// SplitReward splits a reward into worker payout and platform fee at the
// given fee rate in basis points. The fee is rounded half-up and the
// payout is the exact remainder, so payout + fee == reward always holds.
func SplitReward(reward Amount, rateBps int) (payout, fee Amount) {
	fee = Amount((int64(reward)*int64(rateBps) + BpsDenominator/2) / BpsDenominator)
	payout = reward - fee
	return payout, fee
}
