// Package models holds the GORM persistence models backing the domain
// aggregates. Domain types stay free of ORM tags; every aggregate has a
// model here plus mappers in both directions, and repositories only ever
// touch the models.
//
// Layout mirrors the domain packages: identity.go (Agency with flattened
// automation settings), billing.go (PaymentPlan, Installment, PaymentAudit),
// notification.go (notification dedup records), jobrun.go (run ledger), and
// base.go for the shared embedded model types.
package models
