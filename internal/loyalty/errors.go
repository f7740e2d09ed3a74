package loyalty

import "errors"

var (
	// ErrConfigNotReady is returned when a ledger or points operation runs
	// before AppSettings has been loaded. Failing fast here avoids silently
	// crediting points computed from defaults.
	ErrConfigNotReady = errors.New("app settings not loaded")

	// ErrUserNotFound distinguishes "target vanished" from "nothing happened".
	ErrUserNotFound = errors.New("user not found")

	// ErrRewardNotFound is the catalog analog of ErrUserNotFound.
	ErrRewardNotFound = errors.New("reward not found")

	// ErrNothingDetected rejects confirming a scan that earned zero points.
	ErrNothingDetected = errors.New("nothing detected to redeem")

	// ErrInsufficientPoints is returned by the redemption flow when the user
	// cannot afford the reward. The ledger itself never checks this.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidTierConfig rejects a tier table that does not partition the
	// non-negative integers contiguously.
	ErrInvalidTierConfig = errors.New("invalid tier configuration")
)
