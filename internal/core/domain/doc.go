// Package domain defines the error taxonomy shared by all OrdGuard
// subsystems.
//
// Every user-visible failure is a typed DomainError carrying a structured
// error code and, where applicable, the original cause. Callers match on
// codes with errors.Is rather than on message text.
package domain
