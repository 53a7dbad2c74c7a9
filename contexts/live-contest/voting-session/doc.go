// Package votingsession runs the live pitch-and-vote session of a contest
// inside the live-contest context.
//
// A session walks every eligible team through pitching, voting and break
// phases on a server-side countdown, collects peer ballots under the
// one-vote-per-pair and downvote cap rules, and ranks the teams when the
// last presentation closes. Lifecycle changes and ballots are written to an
// outbox for downstream consumers.
package votingsession
