// Package runtime implements the cooperative scheduler: Stage, Trial and Experiment.
//
// Nothing in this package spawns goroutines. An Experiment drives many Trials from
// one control loop by calling Trial.Step repeatedly; each Step advances a trial by
// at most one stage boundary and returns promptly.
package runtime
