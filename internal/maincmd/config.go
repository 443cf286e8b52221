package maincmd

import "github.com/caarlos0/env/v6"

// Config holds the resource limits applied to every VM run, overridable
// through environment variables so a long-running host process can tune
// them without a recompile.
type Config struct {
	// MaxSteps bounds the number of fetch-decode-execute cycles a program
	// may run before it is aborted as a runaway loop. 0 means unbounded.
	MaxSteps int `env:"FVM_MAX_STEPS" envDefault:"0"`
	// MaxCallDepth bounds the call-frame stack depth. 0 means unbounded.
	MaxCallDepth int `env:"FVM_MAX_CALL_DEPTH" envDefault:"0"`
}

// loadConfig parses Config from the process environment.
func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
