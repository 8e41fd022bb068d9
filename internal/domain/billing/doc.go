// Package billing provides the domain model for payment plans and their
// installments.
//
// This package implements the installment lifecycle bounded context, which is
// responsible for:
//   - Tracking installments through their status machine (draft, pending,
//     partial, paid, overdue, cancelled)
//   - Recording payments against installments, with cumulative amounts and an
//     overpayment ceiling
//   - Recalculating the earned commission of a payment plan from its paid
//     installments
//   - Evaluating agency-local due-date transitions against a timezone-aware
//     clock
//
// Key Aggregates:
//   - PaymentPlan: A student's agreed payment schedule and its commission
//   - Installment: A single dated slice of a plan's total amount
//
// Supporting types:
//   - Clock: Agency-local calendar dates derived from timezone and daily cutoff
//   - PaymentAudit: Append-only record of a successful payment recording
//
// The billing domain integrates with:
//   - Identity domain: For agency automation settings
//   - Automation layer: As the source of due/overdue state transitions
package billing
