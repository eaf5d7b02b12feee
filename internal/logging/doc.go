// Package logging builds the zerolog loggers used across memwatch.
// Components receive a logger through SetLogger and default to zerolog.Nop().
package logging
