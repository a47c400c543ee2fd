// Package config loads podstrom's per-repository defaults.
//
// Settings come from three layers, later ones winning:
//   - the YAML file <git-dir>/podstrom.yaml
//   - PODSTROM_* environment variables
//   - command line flags, applied by the caller
package config
