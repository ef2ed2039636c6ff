/*
Package escalation converts unexpected failures into control outcomes.

Every Stage, Trial and Experiment owns a Policy: a consumable, ordered list of outcome
kinds. When a step fails with an error that is not itself an intentional control outcome,
the owning entity's Guard logs it and asks the Policy for the next outcome to raise in its
place. Once the policy is exhausted the original error propagates unchanged to the next
tier, where the same interception applies with that tier's policy.

A compact entry list such as

	[]Entry{{Kind: domain.KindStageReset, Repeat: 3}, {Kind: domain.KindTrialReset, Repeat: 1}}

resets the stage on the first three failures, resets the trial on the fourth, and escalates
every failure after that. A Repeat of 0 repeats the kind forever without consuming it.
*/
package escalation
