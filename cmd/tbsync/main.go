// Command tbsync runs testbench timing utilities and loopback scenarios.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tbsync/cmd/tbsync/cmd"
)

func main() {
	atexit.Exit(cmd.Execute())
}
