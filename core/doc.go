// Package core contains the canonical sync domain contracts, entities, and
// the webhook dispatch orchestration logic. Lower-level adapters (transport,
// store, auth) must depend on this package; core must not depend on them.
package core
