package billing

import "time"

// EvaluateTransition decides whether an installment changes state given the
// agency's current local date and whether today's cutoff has passed.
// A pending installment becomes overdue once its due date is strictly in
// the past, or is today and the cutoff has been reached. Every other state
// is left untouched, so re-evaluation is a no-op after the first
// application.
func EvaluateTransition(status InstallmentStatus, dueDate, localToday time.Time, cutoffPassed bool) (InstallmentStatus, bool) {
	if status != InstallmentStatusPending {
		return status, false
	}
	due := DateOf(dueDate)
	today := DateOf(localToday)
	if due.Before(today) || (due.Equal(today) && cutoffPassed) {
		return InstallmentStatusOverdue, true
	}
	return status, false
}
