// Package marquee provides the persistence core of a small content-management
// backend: a typed, localized resource model, transactional unit-of-work access
// to the underlying repositories, and the create/retrieve/update/delete/list
// operations with language-fallback semantics.
//
// The package defines the contracts only; two conforming backends live in
// repo/memory (tests, local development) and repo/postgres (production).
// Transport, authentication and image processing are callers of this package,
// never part of it.
package marquee
