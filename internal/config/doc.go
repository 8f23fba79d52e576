// Package config loads lockkv settings from YAML or JSON files.
//
// The file format is selected by extension (.yaml, .yml or .json). Fields
// left unset fall back to the defaults of the package they configure.
//
//	server:
//	  listen: ":8888"
//	  max_connections: 0
//	  max_line_length: 1024
//	  max_batch_depth: 8
//	admin:
//	  enabled: true
//	  listen: "127.0.0.1:9190"
//	log:
//	  level: info
//	load:
//	  addr: "127.0.0.1:8888"
//	  sessions: 100
//	  commands: 100
//	  keys: 1000
//	  write_ratio: 0.5
//	stress:
//	  name: nightly
//	  duration: 30s
//	  workers: 50
//	  chaos:
//	    enabled: true
//	    interval: 200ms
//	    pause_time: 50ms
//	    attack_types: [pause, cancel]
package config
