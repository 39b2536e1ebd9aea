// Package redis provides Redis-backed implementations of the arenakit
// persistence interfaces: OutcomeStore for transaction outcomes and
// PreferenceStore for wallet kind preferences.
//
// All stores accept any redis.UniversalClient, so they work with single
// instances, sentinel and cluster deployments alike. Keys can be namespaced
// with the WithKeyPrefix options when several applications share one Redis.
package redis
