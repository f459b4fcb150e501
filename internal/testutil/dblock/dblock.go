// Package dblock serialises database integration tests across package test
// binaries by holding a loopback TCP port.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45433"

// Acquire blocks until the lock is held and returns its release func.
func Acquire() func() {
	return acquire(lockAddr, 50*time.Millisecond)
}

func acquire(addr string, retry time.Duration) func() {
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(retry)
	}
}
