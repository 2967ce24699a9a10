package main

const helpText = `LogNarrator: an edge agent that collects, enriches and ships logs.

Usage:
  lognarrator [options]

Application Control:
  -c, --config <path>            Path to configuration file (default: ~/.config/lognarrator.toml)
  -h, --help                     Display this help message and exit
  -v, --version                  Display version information and exit
  -q, --quiet                    Suppress all console output, including errors
      --shutdown-timeout <dur>   Upper bound for graceful shutdown (default: 15s)

Logging:
      --log-level <level>        debug, info, warn, error (overrides config)
      --log-output <mode>        file, stdout, stderr, both, none (overrides config)

Setup:
      --generate-keys <path>     Write <path>.private and <path>.public and exit
      --init-config <path>       Write an example configuration and exit

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - Dotted flags override TOML settings, e.g. --pipeline.buffer_size=500
  - LOGNARRATOR_ prefixed variables override file settings,
    e.g. LOGNARRATOR_LOGGING_LEVEL=debug
  - YAML documents (.yaml, .yml) are decoded without layering

Environment Variables:
  LOGNARRATOR_CONFIG_FILE              Config file path
  LOGNARRATOR_CONFIG_DIR               Config directory
  LOGNARRATOR_DISABLE_STATUS_REPORTER  Disable periodic status reports (set to 1)

Examples:
  # Generate the signing keypair used by the cloud exporter
  lognarrator --generate-keys /etc/lognarrator/agent

  # Start with a custom config and debug logging on the console
  lognarrator -c /etc/lognarrator/agent.toml --log-level debug --log-output stderr
`
