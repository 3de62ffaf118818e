package main

import (
	"fmt"
	"os"
)

func debugEnabled() bool {
	return os.Getenv("K5KTOOL_DEBUG") != ""
}

// dumpBytes writes offset/byte pairs to stderr when K5KTOOL_DEBUG is set.
func dumpBytes(data []byte, label string) {
	if !debugEnabled() {
		return
	}
	f := os.Stderr

	fmt.Fprintf(f, "Dumping %d bytes of %s:\n", len(data), label)

	for i, b := range data {
		fmt.Fprintf(f, "%d 0x%02X\n", i, b)
	}
}
