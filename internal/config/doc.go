// Package config provides the configuration of carledger: built-in
// defaults, the optional YAML file (.carledger), environment overrides
// loaded from a .env file, and the conversion of the file's rule tables
// into the item pipeline's rules.
//
// Precedence, highest first: command line flags, environment, config file,
// defaults.
package config
