// Package resource arbitrates access to pools of bounded, named resources
// (VM slots, licenses, sandboxes) shared by many trials.
//
// A Warden performs ordered, all-or-nothing acquisition over a set of
// ports.Semaphore primitives. A Container layers an ordered ledger on top of a
// Warden so a single trial can roll back the resources it acquired as a group
// ("chunk") without touching what it held before.
package resource
