// Package store provides the shipped backends for the engine's CodeStore
// and UserStore interfaces.
//
// Code state (pending code, attempt counter, rate-limit marker) lives in
// Redis for deployments with more than one process, or in a mutex-guarded
// in-process store for tests and single-node setups. Identity records live
// in Postgres or in memory.
//
// All backends report connectivity failures wrapped in
// [wordgate.ErrStorageUnavailable] so callers can match with errors.Is
// without knowing the backend.
package store
