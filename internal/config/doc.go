// Package config handles configuration loading for the diagnostic agent.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. A missing file is created with defaults (load-or-create), so a
// freshly unpacked agent starts with a template the installer only has to
// fill the agreement id into.
//
// # Configuration File
//
//	agreement_id: "7712345"
//	server_url: "ws://ort.chrsnv.ru:8765"
//	autostart: true
//
//	probes:
//	  max_concurrent: 8       # concurrent probe processes
//	  trace_header_lines: 3   # tracert banner lines skipped by the parser
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
//	  file: "logs.txt" # empty disables file logging
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME} syntax:
//
//	agreement_id: "${ORT_AGREEMENT_ID}"
//
// # Validation
//
// Load() validates the server URL scheme and the logging enums. An empty
// agreement id is deliberately not a load error: the session refuses to
// register with one and that failure is fatal there, with a clearer message.
package config
