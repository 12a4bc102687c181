// Package watchfeed is the feed personalization engine of a TV and film
// tracking app.
//
// The engine decides what shows up in a user's home feed:
//
//   - internal/exclusion: titles a user must never be recommended
//   - internal/similar: catalog "because you watched" ranking
//   - internal/tastematch: 0-100 taste compatibility between users
//   - internal/throttle: exposure cap and cooldown per feed card
//   - internal/activity: chain grouping of raw activity into feed entries
//
// Collaborators live in internal/repository (Postgres via GORM),
// internal/cache (Redis impression ledger) and internal/catalog (external
// media catalog client). internal/kernel wires them together for the
// binaries under cmd/.
package watchfeed
