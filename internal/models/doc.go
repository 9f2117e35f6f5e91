// Package models defines the core domain models for finduo.
//
// # Entities
//
// The following models make up the mutable domain held by the domain store:
//   - User: a chat user identified by the id the transport assigns
//   - FamilyGroup: a household sharing finances, joined with an invitation code
//   - Goal: a savings goal with a target amount and date
//   - PaydaySchedule: a yearly (day + month) or legacy monthly pay date
//
// Budgets and custom categories are plain maps owned by the domain store and
// have no struct of their own.
//
// Record is owned by the ledger; it is read by the analyzer and written by
// the session engine when a transaction is committed.
//
// # Design Principles
//
// 1. **Ids, not pointers**: relationships between entities use user ids and group ids
// 2. **Zero values are safe**: a zero Goal has nothing saved, a zero schedule is legacy
// 3. **No persistence concerns**: row layouts live in the domain package
package models
