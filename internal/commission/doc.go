// Package commission holds the brokerage's commission arithmetic: installment
// generation from payment schedules, agent/agency splits, the transaction-form
// calculator, upline overrides, forecasting and display formatting.
//
// Everything here is pure and deterministic. Callers pass the clock and the
// tier/rank tables in; nothing reads the environment or talks to a store.
package commission
