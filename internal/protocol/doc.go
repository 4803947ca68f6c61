// Package protocol assembles and parses mainboard link messages.
//
// Ownership boundary:
// - message encode/decode over byte buffers and streams
// - checksum sealing and verification through frame
// - typed parameter access and message validation
package protocol
