// Package internal mints and checks the random session ids that name
// revocation records. Its sub-packages carry the rest of the private
// machinery:
//
//   - flows runs Issue, Verify and Revoke against injected dependencies.
//   - rate counts issuances per user in fixed Redis windows.
//
// Nothing here is part of the goSession API, and no type defined here may
// appear in an exported goSession signature.
package internal
