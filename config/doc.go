// Package config loads kvops settings from defaults, an optional config file,
// KVOPS_* environment variables, and command-line flags, in increasing order
// of precedence.
//
//	v := viper.New()
//	config.RegisterFlags(cmd.PersistentFlags())
//	_ = config.BindFlags(v, cmd.PersistentFlags())
//	cfg, err := config.Load(v)
//
// Connection strings may reference environment variables as ${VAR}; a
// reference to an unset variable is an error rather than an empty string.
package config
