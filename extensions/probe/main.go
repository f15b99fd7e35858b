// Probe is a minimal native extension for hooktarget. Built with
// -buildmode=c-shared, it reports when the dynamic loader runs its
// constructor and when the host calls its entry symbol.
package main

import "C"

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var entered atomic.Bool

func init() {
	fmt.Fprintf(os.Stderr, "[probe] constructor ran in pid %d\n", os.Getpid())
}

//export hooktarget_entry
func hooktarget_entry() {
	if !entered.CompareAndSwap(false, true) {
		fmt.Fprintln(os.Stderr, "[probe] entry called more than once")
		return
	}

	fmt.Fprintf(os.Stderr, "[probe] entry called at %s\n", time.Now().Format(time.RFC3339Nano))
}

func main() {}
