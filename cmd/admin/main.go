// Command admin inspects a running or stopped server: the sqlite index for
// chunk churn and determinism, the admin HTTP endpoints for live state.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "chunks":
		err = chunksCmd(os.Stdout, args)
	case "mismatches":
		err = mismatchesCmd(os.Stdout, args)
	case "events":
		err = eventsCmd(os.Stdout, args)
	case "state":
		err = stateCmd(os.Stdout, args)
	case "chunk":
		err = chunkCmd(os.Stdout, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, os.Args[1]+":", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

index (offline):
  chunks      most regenerated chunks
  mismatches  chunks that regenerated with a different digest
  events      session event counts by type

server (loopback http):
  state       observer position and cache stats
  chunk       print one resident chunk`)
}
