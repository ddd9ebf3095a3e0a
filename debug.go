// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"
	"log"
	"os"
)

var debugLogger *log.Logger

// initDebug enables the debug logger when the -debug flag or the
// environment variable MZNOVO_DEBUG=1 is set
func initDebug(enabled bool) {
	if enabled || os.Getenv("MZNOVO_DEBUG") == `1` {
		debugLogger = log.New(os.Stderr, `debug: `, log.LstdFlags|log.Lshortfile)
	}
}

func logDebugf(format string, v ...interface{}) {
	if debugLogger != nil {
		debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

func logDebug(v ...interface{}) {
	if debugLogger != nil {
		debugLogger.Output(2, fmt.Sprintln(v...))
	}
}
