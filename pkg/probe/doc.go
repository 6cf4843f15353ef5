// Package probe implements the probing domain: classification of
// remote ping output, per-session result accounting, durable session
// logs, and the transport contract sessions are driven through.
package probe
