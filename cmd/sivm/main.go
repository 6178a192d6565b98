// Command sivm loads a bytecode image and runs it to completion, printing
// the final result or reporting the fault that aborted it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zhongfu/sinter"
	"github.com/zhongfu/sinter/internal/debug"
	"github.com/zhongfu/sinter/internal/flag2"
	"github.com/zhongfu/sinter/internal/stats"
)

func main() {
	heapSize := flag.Int("heap", 64*1024, "heap arena size in bytes")
	stackSize := flag.Int("stack", 1024, "operand stack depth in entries")
	noSafety := flag.Bool("unsafe", false, "report out-of-range environment loads/stores as internal errors instead of invalid-load faults")
	bench := flag.Int("bench", 0, "run the image this many times and report the mean wall time per run")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sivm [flags] <image-file>")
		os.Exit(2)
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sivm:", err)
		os.Exit(1)
	}

	m := sinter.New(
		sinter.WithHeapSize(*heapSize),
		sinter.WithStackSize(*stackSize),
		sinter.WithSafetyChecks(!*noSafety),
	)

	if debug.Enabled {
		debug.Log(nil, "main", "loaded %d bytes, heap=%d stack=%d safety=%v",
			len(image), flag2.Lookup[int]("heap"), flag2.Lookup[int]("stack"), !*noSafety)
	}

	if *bench > 0 {
		runBench(m, image, *bench)
		return
	}

	result, err := m.Run(image)
	if err != nil {
		var f sinter.Fault
		if errors.As(err, &f) {
			fmt.Fprintf(os.Stderr, "sivm: program faulted: %s\n", f)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "sivm:", err)
		os.Exit(1)
	}

	fmt.Println(result)
}

func runBench(m *sinter.Machine, image []byte, n int) {
	var mean stats.Mean
	median := stats.NewMedian(max(n, 1))
	for i := 0; i < n; i++ {
		start := time.Now()
		if _, err := m.Run(image); err != nil {
			fmt.Fprintln(os.Stderr, "sivm:", err)
			os.Exit(1)
		}
		elapsed := float64(time.Since(start))
		mean.Record(elapsed)
		median.Record(elapsed)
	}
	fmt.Printf("%d runs, mean %s/run, median %s/run\n",
		n, time.Duration(mean.Get()), time.Duration(median.Get()))
}
