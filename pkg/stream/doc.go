// Package stream contains the consumption core of a strand session: the
// EventBuffer bridging asynchronous pushes to synchronous polls, and the
// FlowController bounding the server's send volume with credits.
package stream
