// Package proxy lets several independent logical consumers share one
// physical connector.
//
// An Owner holds the single physical connector. Zero or more channels
// attach to it: Channel for consumers in the same process, MpChannel for
// consumers across a process boundary. Every frame the physical connector
// receives is copied into each attached channel's inbound side (per-channel
// FIFO order, no ordering across channels); every frame a channel sends is
// forwarded to the physical connector without batching or reordering.
//
// The two channel variants deliberately differ on close semantics. A thread
// Channel discards its inbound buffer on close so a reopened channel never
// sees stale frames. An MpChannel must preserve its queue handles across
// close/reopen - reallocating them would orphan the peer process's end.
package proxy
