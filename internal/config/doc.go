// Package config loads, normalizes, and validates Paceline configuration.
//
// Configuration lives in a TOML file (default ~/.config/paceline/config.toml,
// or ./paceline.toml for project-local setups). Load applies defaults for
// missing keys, expands ~ in paths, and rejects unusable values so the rest
// of the program can trust the Config it receives. The embedded sample file
// backs the `paceline config init` command.
package config
