package debug

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
)

//
// Debug output is controlled by the TAPROOTDEBUG environment variable,
// which can be a list of labels (e.g., "BOOT;ALLOC;EXEC").
//

var labels map[Tselector]bool

func init() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	labels = make(map[Tselector]bool)
	s := os.Getenv("TAPROOTDEBUG")
	if s == "" {
		return
	}
	for _, l := range strings.Split(s, ";") {
		labels[Tselector(l)] = true
	}
}

func WillBePrinted(label Tselector) bool {
	return labels[label] || label == ALWAYS
}

func DPrintf(label Tselector, format string, v ...interface{}) {
	if WillBePrinted(label) {
		log.Printf("%v %v", label, fmt.Sprintf(format, v...))
	}
}

func DFatalf(format string, v ...interface{}) {
	pc, file, line, ok := runtime.Caller(1)
	fnDetails := runtime.FuncForPC(pc)
	if ok && fnDetails != nil {
		log.Fatalf("FATAL %v %v:%v %v", fnDetails.Name(), file, line, fmt.Sprintf(format, v...))
	} else {
		log.Fatalf("FATAL (missing details) %v", fmt.Sprintf(format, v...))
	}
}
