// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package tags

// Result is the terminal outcome of an engine operation. The UI/command
// layer maps each variant to a user-visible message; no other signal
// crosses the engine boundary.
type Result int

// Engine operation outcomes.
const (
	// ResultNotFound: no tag with that id exists in the catalog.
	ResultNotFound Result = iota

	// ResultNoPermission: the tag is gated by a node the player lacks.
	ResultNoPermission

	// ResultUnlockedFree: the tag was granted without an economy
	// transaction (zero price or not purchasable) and equipped.
	ResultUnlockedFree

	// ResultUnlockedPaid: the withdrawal succeeded and the tag was
	// granted and equipped.
	ResultUnlockedPaid

	// ResultEquippedAlreadyOwned: the player already owned the tag; it
	// was equipped without touching the economy.
	ResultEquippedAlreadyOwned

	// ResultUnequipped: the tag was equipped and has been taken off.
	ResultUnequipped

	// ResultNoEconomy: a paid tag was requested but no economy provider
	// is available.
	ResultNoEconomy

	// ResultNotEnoughMoney: the player's balance does not cover the price.
	ResultNotEnoughMoney

	// ResultTransactionFailed: the economy provider rejected the
	// withdrawal after the balance check passed.
	ResultTransactionFailed
)

var resultNames = map[Result]string{
	ResultNotFound:             "NOT_FOUND",
	ResultNoPermission:         "NO_PERMISSION",
	ResultUnlockedFree:         "UNLOCKED_FREE",
	ResultUnlockedPaid:         "UNLOCKED_PAID",
	ResultEquippedAlreadyOwned: "EQUIPPED_ALREADY_OWNED",
	ResultUnequipped:           "UNEQUIPPED",
	ResultNoEconomy:            "NO_ECONOMY",
	ResultNotEnoughMoney:       "NOT_ENOUGH_MONEY",
	ResultTransactionFailed:    "TRANSACTION_FAILED",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Granted reports whether the operation left the player owning the tag.
func (r Result) Granted() bool {
	switch r {
	case ResultUnlockedFree, ResultUnlockedPaid, ResultEquippedAlreadyOwned:
		return true
	default:
		return false
	}
}
