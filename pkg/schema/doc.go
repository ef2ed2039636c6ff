// Package schema declares the expected shape of a trial's initial state.
//
// An experiment file may carry a schema section mapping state keys to type names:
//
//	schema:
//	  host: string
//	  port: int
//	  tags: "[string]"
//	  timeout: duration
//
// Every slot's initial state, combined with each queued argument set, is checked
// against it before the experiment starts.
package schema
