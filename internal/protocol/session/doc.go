// Package session owns one client connection to an X server.
//
// Ownership boundary:
// - display target parsing and transport dial
// - connection setup (handshake) and server info
// - sequence numbers and resource-id allocation
// - request writes, packet reads, reply matching and the event queue
// - extension and atom caches
//
// A Conn is single-owner: none of its methods may run concurrently, except
// Close, which may be called from another goroutine to unblock Run.
package session
