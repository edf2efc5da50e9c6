// Package port derives the set of host ports the deployment will bind
// and audits them for conflicts before anything is started.
//
// The port set is computed fresh each run from the reconciled environment
// document: the console HTTP port is always included, the HTTPS port only
// when the document enables TLS. Availability is probed by binding the
// port via net.Listen, the same address space the container engine
// publishes on, so the audit sees exactly the conflicts the engine would.
//
// A conflict is fatal: starting the stack against a bound port would
// leave a half-started deployment behind, so the audit runs strictly
// between reconciliation and the first sequencer command.
package port
