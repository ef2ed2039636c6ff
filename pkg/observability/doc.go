/*
Package observability provides tools for monitoring a running experiment.

Metrics exposes Prometheus collectors and Tracker keeps a per-slot status snapshot.
Both are fed through domain.LifecycleHooks, so they can be combined with any other
hooks via LifecycleHooks.Merge.
*/
package observability
