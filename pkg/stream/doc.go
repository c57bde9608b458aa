// Package stream delivers a session's batches to hosts.
//
// A Server is a session.Sink: every batch a session commits is queued for the
// hosts connected to that session and written to each as one binary WebSocket
// message (see Frame). Hosts connect to
//
//	GET /sessions/{id}/ws?after={seq}
//
// where seq is the last batch the host applied (0 for none). The server first
// replays the batches after seq from the session's history. If the history no
// longer holds them, or the host claims a seq the session never produced, it
// sends a snapshot frame instead, which mounts the whole document. Live
// batches follow.
//
// A host that falls SendBuffer batches behind is disconnected rather than
// slowing its session down; it reconnects with the last seq it applied.
//
// Batches can also be fetched over plain HTTP from the session's history, or
// from an archive.Store once they have left it.
package stream
