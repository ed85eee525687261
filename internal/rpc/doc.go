// Package rpc implements the client side of the Steamworks proxy protocol.
//
// The proxy speaks JSON-RPC over a TCP stream. Each message is wrapped in a
// "Content-Length: <N>\r\n\r\n" header followed by exactly N bytes of JSON.
//
// The main components are:
//
//   - [Transport]: a single resilient connection with a request queue
//   - [Client]: typed leaderboard, workshop and persona queries
//   - [ReadFrame] and [WriteFrame]: the framing layer
//
// The transport keeps exactly one request on the wire at a time and matches
// responses to callers by completion handle; [Client] additionally checks the
// response id.
package rpc
