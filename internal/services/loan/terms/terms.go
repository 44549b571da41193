// Package terms defines the 72-hour loan cycle arithmetic.
package terms

import "time"

// CycleDuration is how long a borrower has to repay.
const CycleDuration = 72 * time.Hour

// MinAmount is the smallest loan the platform issues, in rand.
const MinAmount = 100

// baseFee is the flat portion of the initiation fee, in rand.
const baseFee = 165

// Urgency buckets for time remaining until the due date.
const (
	UrgencySafe     = "safe"
	UrgencyWarning  = "warning"
	UrgencyCritical = "critical"
)

// XP awarded per repayment, keyed by urgency at repayment time.
var repaymentXP = map[string]int64{
	UrgencySafe:     250,
	UrgencyWarning:  150,
	UrgencyCritical: 50,
}

// InitiationFee returns the fee charged when a loan is issued: a flat base
// plus ten percent of the principal.
func InitiationFee(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return baseFee + amount/10
}

// Disbursement returns the net amount paid out after the initiation fee.
func Disbursement(amount int64) int64 {
	return amount - InitiationFee(amount)
}

// DueDate returns when a loan issued at start must be repaid.
func DueDate(start time.Time) time.Time {
	return start.Add(CycleDuration)
}

// Urgency buckets the time remaining before due.
func Urgency(due time.Time, now time.Time) string {
	remaining := due.Sub(now)
	switch {
	case remaining >= 24*time.Hour:
		return UrgencySafe
	case remaining >= 12*time.Hour:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// RepaymentXP returns the XP earned for repaying at the given urgency.
// Unknown urgencies earn the critical amount.
func RepaymentXP(urgency string) int64 {
	if xp, ok := repaymentXP[urgency]; ok {
		return xp
	}
	return repaymentXP[UrgencyCritical]
}
