// Package wire implements the Tractor engine's request transport.
//
// Every [Transport.Transaction] opens a new TCP connection, sends a single
// HTTP/1.0 POST request, reads the reply until the engine closes the
// connection and closes it without lingering. Replies with a status other
// than 200 and all connection failures are returned as [*Error], carrying
// a numeric code and a classification sentinel such as [ErrConnRefused].
//
// The default host name "tractor-engine" is resolved lazily: if it cannot
// be looked up, a [Locator] is asked once, and if that fails too,
// 127.0.0.1:80 is tried.
//
// Reply bodies are JSON, except for engines older than 1.6 which may send
// Python literals; [DetectParser] picks the parser from the reply's
// Server header.
package wire
