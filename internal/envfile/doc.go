// Package envfile models the environment document (.env) as an ordered
// list of line records and implements the reconciliation between the
// downloaded template and a possibly pre-existing local document.
//
// The parser classifies each line as a blank, a comment, an active
// "KEY=VALUE" pair, or a disabled "#KEY=VALUE" pair. Serialization
// reproduces every untouched line byte-for-byte, so reconciliation never
// reformats an operator's file — it only rewrites the specific lines it
// was asked to change.
//
// Reconciliation has two modes. On a fresh install (no local document)
// the template is adopted verbatim and command-line overrides are applied
// by activating the matching disabled keys. On a re-run (local document
// exists) the local document is ground truth: overrides are ignored and
// new template keys are surfaced as warnings for the operator to act on.
// No pre-existing line is ever deleted or value-overwritten in that mode.
package envfile
