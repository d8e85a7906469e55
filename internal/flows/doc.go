// Package flows holds the decision logic behind every Engine operation.
//
// RunIssue, RunVerify and RunRevoke take a dependency struct of plain funcs
// and narrow store interfaces, and return a result describing what happened:
// an outcome, a failure kind and the error that caused it. The root package
// turns those results into metrics, audit events, log lines and return values.
//
// Flows keep no state between calls and never touch Redis or signing keys
// directly; every side effect goes through a dependency. The package must not
// import goSession.
package flows
