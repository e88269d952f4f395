// Package repositories implements SQLite persistence for local client state.
//
// Two kinds of state live here:
//   - [SessionRepository] : the access/refresh token pair, stored as a single row so both tokens change together.
//     It satisfies session.Backend and backs the "sqlite" storage driver.
//   - [TaskCacheRepository] : a snapshot of the most recently listed page of tasks,
//     so `tasks list --cached` works without a network round trip.
//
// Tables are created by the embedded migrations in the shared package.
package repositories
