// Package component defines the contracts shared by every wired component
// in a test rig: the Frame envelope that crosses channel boundaries, the
// Connector and Auxiliary interfaces, and the Spec describing a configured
// component entry.
//
// The package deliberately contains no behaviour beyond the envelope type.
// Connectors wrap a physical or virtual communication channel; auxiliaries
// are the test-facing components bound to one or more connectors. Both are
// constructed by factories resolved through the locator registry and owned
// by the binder for the duration of an install session.
package component
