// Package types holds small value types shared by plugins, the host and the
// gRPC server.
package types
