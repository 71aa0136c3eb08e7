// Package keyserver implements the public key directory.
//
// The directory speaks one JSON document per TCP connection: the client
// writes a request, the server answers with one response and closes the
// connection. Two request types exist:
//
//	{"type":"register","client_id":<int>,"public_key":[<int>,...]}
//	{"type":"retrieve","client_id":<int>}
//
// Responses carry "status" ("success" or "error") plus a "message" or the
// requested "public_key". A malformed request gets an error response and the
// server keeps serving.
//
// The server can also expose a read-only HTTP view of the store together with
// Prometheus metrics, see Server.AdminHandler.
package keyserver
