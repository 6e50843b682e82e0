// Command fifoctl is the operator-facing CLI for fifoguard: health
// checks, manual conflict resolution, ad-hoc flushes, retention
// cleanup, and per-session stats, all driven against the same SQLite
// store the embedding application uses.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
