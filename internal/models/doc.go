// Package models defines the core domain models for SusuSave.
//
// # Models
//
//   - Group: a rotating-savings group with a fixed contribution and cycle count
//   - Member: a person who can belong to groups (identified by phone for money movement)
//   - Membership: a member's seat in a group, carrying the rotation position
//   - Payment: one contribution attempt per (member, group, round)
//   - Payout: one distribution per (group, round) to the rotation recipient
//   - AuditEntry: an append-only record of a state transition
//   - Notification: an in-app message for a member
//
// # Invariants
//
//  1. At most one Payment in status success per (member, group, round).
//  2. At most one Payout per (group, round); its amount is fixed at creation.
//  3. Group.CurrentRound only moves forward, by one, when a Payout becomes paid.
//  4. Rotation positions are assigned at join time and never renumbered.
//
// Relationships use ID strings instead of pointers. Timestamps are Unix seconds;
// a zero value means "not set".
package models
