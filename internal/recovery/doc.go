// Package recovery defines the error taxonomy shared by every component and
// the classifier that turns failures into recovery decisions.
//
// Contract boundaries never panic and never use errors for control flow:
// operations return typed failures built with Wrap around one of the
// exported sentinel markers. The Classifier inspects a failed operation's
// context and produces a Classification (kind, retryability, backoff, user
// guidance) plus a RecoveryAction the queue workers act on.
package recovery
