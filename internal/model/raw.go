package model

// RawRecord is one newline-delimited record read from a client
// connection, tagged with the identity of the host that sent it. It is
// produced by the listener and consumed exactly once by the converter.
type RawRecord struct {
	Payload  []byte
	ClientID string
}
