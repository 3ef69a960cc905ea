// Package electionengine implements the election and ballot integrity engine
// inside the governance context.
//
// The module owns the election lifecycle (draft, open, closed, rollback),
// anonymous voter keys, eligibility evaluation, the append-only ballot
// ledger, proxy delegation and tallying. Storage constraints, not the
// application layer, are the final guarantee of one ballot per voter per
// contest.
//
// Layering:
// - domain: entities, rules, tally algorithms and errors
// - application: commands, queries and workers over explicit ports
// - ports: persistence, directory, outbox and notification boundaries
// - adapters: HTTP handler, memory store, postgres repository, outbox notifier
// - transport: module-private DTOs for HTTP contracts
package electionengine
