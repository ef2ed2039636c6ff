// Package stages provides the built-in stage kinds available from configuration files.
//
//	wait     pollable  completes after a number of polls or a duration
//	record   blocking  appends selected state fields to the trial results
//	acquire  blocking  acquires resources into the trial's resource container
//	release  blocking  releases the current chunk (or everything) from the container
//	flaky    blocking  fails a number of times before succeeding
//	exec     pollable  runs an external command
package stages
