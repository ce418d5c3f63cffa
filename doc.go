// Package transaction simulates atomicity over side effects that cannot share
// a real transaction, such as a series of calls to remote APIs.
//
// A Transaction applies tasks one by one (Apply) or as concurrent groups
// (ApplyAll) and remembers every task that succeeded. When a later step fails
// the caller invokes Revert, which runs the compensation of every remembered
// task in reverse order. This is the saga pattern; for background see the 2017
// JOTB talk by Caitie McCaffrey: https://www.youtube.com/watch?v=0UTOLRTwOX0
//
// Overview
//
//  1. Define your tasks:
//     - Implement Task, or use NewTask with an apply and a revert function.
//     - Use NewIrreversibleTask for effects that cannot be undone. Applying
//     one makes the whole transaction irreversible.
//  2. Create a Transaction with New, optionally with WithRetries so that
//     every apply and revert is attempted more than once before giving up.
//  3. Apply tasks. If anything fails, call Revert and inspect the
//     RevertReport: compensations that failed are listed there, the others
//     have all run.
//  4. For larger flows, describe the steps and their dependencies in a Plan
//     and let Plan.Run group independent steps into ApplyAll calls.
//
// Example:
//
//	tx, _ := transaction.New(transaction.WithRetries(2))
//	customer, err := tx.Apply(ctx, createCustomer)
//	if err != nil {
//		report, _ := tx.Revert(ctx)
//		...
//	}
//
// See examples/rest_update for a complete program.
package transaction
