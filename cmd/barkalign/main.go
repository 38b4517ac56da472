// Command barkalign pitch-aligns a folder of bark clips to one reference
// clip and writes normalized 16-bit WAV files.
//
// Usage:
//
//	barkalign align [flags]
//	barkalign catalog [dir]
//	barkalign probe
//
// Configuration is read from built-in defaults, an optional YAML file
// (--config), BARKALIGN_* environment variables and flags, in that order.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
