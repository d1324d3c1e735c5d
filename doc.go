// Package moneymanager is a client for a personal finance tracker backend,
// where users record dated incomes and expenses and follow their balance.
//
// The core functionalities include:
//   - Transaction Store: a local cache of the user's transactions that
//     stays consistent with the server through create, update, delete and
//     fetch operations, including their partial failures.
//   - Aggregates: income, expenses and balance derived from the cache on
//     every read, computed exactly with decimals.
//   - Account: login and registration, feeding the session of package auth.
//   - Error taxonomy: every failure is classified into an *Error whose Kind
//     tells the UI what to do, e.g. send the user back to login.
//
// Authentication itself (token validation, session persistence and the
// transparent refresh of expired credentials) lives in package auth. This
// package serves as the foundational logic for the `mm` command-line tool.
package moneymanager
