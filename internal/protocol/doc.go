// Package protocol owns the schema-driven packet codec.
//
// Ownership boundary:
// - field descriptors and immutable packet schemas
// - records (one schema instance) and their typed accessors
// - Encode/Decode driven by the same schema in both directions
//
// Every request, reply, event and handshake shape is described once as a
// Schema built at package init (see package schema); nothing in this package
// knows about specific packets.
package protocol
