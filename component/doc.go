// Package component defines the lifecycle interface shared by the
// infrastructure pieces of transcriptcheck (ledger, redis, kafka, storage
// and the HTTP server) and a registry that starts them in order and stops
// them in reverse.
package component
