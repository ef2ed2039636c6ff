// Package config loads experiment definitions from YAML.
//
// A minimal experiment file:
//
//	instances:
//	  - host: vm-a
//	  - host: vm-b
//	stages:
//	  - name: boot
//	    kind: wait
//	    options: {polls: 3}
//	  - name: report
//	    kind: record
//	    options: {fields: [host, run]}
//	trials:
//	  - overrides: {run: 1}
//	  - overrides: {run: 2}
//
// Durations are written as strings ("250ms", "30s").
package config
