package escrow

// ComputeFee returns the platform's cut of amount in minor currency
// units: floor(amount * percent / 100). percent is a whole-number
// percentage. Non-positive inputs yield a zero fee.
func ComputeFee(amount int64, percent int) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return amount * int64(percent) / 100
}
