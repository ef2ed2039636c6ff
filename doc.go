/*
Package stagehand runs many multi-stage trials from one control loop.

An Experiment owns a fixed pool of trial slots. Each slot drives an ordered list of
stages over its own key/value state, one stage boundary per scheduler pass, so a
single goroutine can interleave hundreds of long-running trials. Queued argument
sets are handed to slots as they free up; every finished run ships its results.

# Failure escalation

Stages, trials and the experiment each own a consumable escalation policy. An
unexpected failure is first translated by the entity where it happened (retry the
stage, restart the trial, skip, abort...). Only when that policy is exhausted does
the raw failure reach the next tier up. Intentional control outcomes
(domain.ErrStageReset, domain.ErrTrialAbort, ...) bypass policies entirely.

# Resources

Stages that need bounded, shared resources (VM slots, licenses) acquire them
through a resource.Warden, which takes several resources all-or-nothing, and
track them in a resource.Container that can roll back in chunks. Wardens run on
in-process semaphores or on Redis so several experiment processes share one pool.

# Usage

	specs := []stagehand.StageSpec{
		{Name: "boot", Build: func() (ports.Stage, error) { return &Boot{}, nil }},
		{Name: "report", Blocking: true, Build: func() (ports.Stage, error) { return ports.StageFunc(report), nil }},
	}
	queue := stagehand.NewArgQueue()
	queue.Push(domain.ArgSet{Overrides: domain.Update{"run": 1}})

	exp, err := stagehand.NewExperiment(nil, []domain.State{{"host": "vm-a"}}, specs, queue,
		stagehand.WithTrialPolicy(escalation.Entry{Kind: domain.KindTrialReset, Repeat: 3}),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := exp.Run(ctx); err != nil {
		log.Fatal(err)
	}

Experiments described in YAML (see package config) are assembled with Build.
*/
package stagehand
