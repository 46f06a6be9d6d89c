/*
Package config loads stagebus configuration from YAML or JSON files.

# File Format

	session_id: 0b0d7a0e-6c55-4bd4-9a43-5b8f3c1d9e21
	strict_routing: true
	logging:
	  level: debug
	  format: json
	metrics:
	  enabled: true
	journal:
	  backend: sqlite
	  path: run.db
	  types: [report.compiled, pipeline.failed]
	retry:
	  max_attempts: 4
	  initial_backoff: 250ms
	subscriptions:
	  - subscriber: audio.transcribe
	    type: audio.extracted
	    policy: fifo_drop_oldest
	    capacity: 8

Every key is optional. Durations accept Go duration strings or a number of
seconds.

# Usage

	cfg, err := config.Load("stagebus.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	subs, err := cfg.Apply(defaultSubscriptions)
	b := bus.NewBuilder(cfg.BusConfig(logger, registry))

# Values

Decoding goes through Values, a map[string]any wrapper whose accessors
return a default when a key is missing or has the wrong type. It is usable
on its own for ad-hoc settings.
*/
package config
