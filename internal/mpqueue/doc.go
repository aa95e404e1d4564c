// Package mpqueue implements an unbounded, process-safe frame queue whose
// handle is valid on both sides of a process boundary.
//
// A queue is hosted by the process that creates it: the host keeps the
// buffer in memory and serves it over a unix domain socket. The queue
// handle is the socket path. A peer process attaches to the same logical
// queue by dialing the socket, so both processes observe one queue backed
// by one OS-level primitive - there is no shared memory and no second
// buffer to drift out of sync.
//
// Handles survive serialization: a Queue marshals to its socket path and
// unmarshals to an attached (client-side) handle of the same queue. Both
// queues of a multiprocess proxy channel must therefore be created before
// the peer process is spawned.
//
// Wire format between peer and host is a 4-byte big-endian length prefix
// followed by a msgpack-encoded request or response.
package mpqueue
