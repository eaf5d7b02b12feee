// Package apperrors defines the error types and exit codes shared by the
// memwatch packages and its command-line front end.
//
// Nothing in the sampling engine is fatal: lookup misses are represented as
// exclusions or "not found" lines, missing readings as "N/A". The types here
// cover what is reported back to a caller: invalid configuration, rejected
// session requests and persistence failures.
package apperrors
