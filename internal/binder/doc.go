// Package binder owns the install/uninstall lifecycle of configured
// components and exposes them through a Namespace lookup handle.
//
// Install makes every configured entry name resolvable; construction is
// lazy, happening on first access, with an auxiliary's bound connectors
// constructed before the auxiliary itself. Every name resolves to exactly
// one instance per install session: two auxiliaries bound to the same
// connector name observe the identical connector instance.
//
// Uninstall stops and closes everything that was constructed, clears the
// instance registry, and bumps a generation counter. Namespace handles
// carry the generation they were issued under and fail resolution once it
// is stale, so no consumer can keep using instances from a torn-down
// session.
//
// At most one binder is installed per process at a time; the installed
// binder is the authoritative resolution path for configured names.
package binder
