package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"

	"plotter/internal/console"
	"plotter/internal/diskio"
	"plotter/internal/plotter"
)

// gpuList collects repeatable -g plat:dev:cores flags.
type gpuList []string

func (g *gpuList) String() string { return strings.Join(*g, ",") }

func (g *gpuList) Set(v string) error {
	*g = append(*g, v)
	return nil
}

func main() {
	var (
		numericID  uint64
		startNonce uint64
		autoCount  uint64
		nonces     uint64
		outputPath string
		memString  string
		cpuThreads uint
		noDirectIO bool
		noAsyncIO  bool
		lowPrio    bool
		quiet      bool
		benchmark  bool
		gpus       gpuList
	)

	flag.Uint64Var(&numericID, "i", 0, "numeric account id")
	flag.Uint64Var(&numericID, "id", 0, "numeric account id")
	flag.Uint64Var(&startNonce, "s", 0, "starting nonce")
	flag.Uint64Var(&startNonce, "sn", 0, "starting nonce")
	flag.Uint64Var(&autoCount, "A", 0, "auto-plot COUNT sequential files, continuing after existing plots")
	flag.Uint64Var(&autoCount, "sna", 0, "auto-plot COUNT sequential files, continuing after existing plots")
	flag.Uint64Var(&nonces, "n", 0, "nonces per plot file")
	flag.StringVar(&outputPath, "p", "", "target path for plot files")
	flag.StringVar(&outputPath, "path", "", "target path for plot files")
	flag.StringVar(&memString, "m", "0B", "maximum buffer memory (e.g. 4GiB; 0B = auto)")
	flag.StringVar(&memString, "mem", "0B", "maximum buffer memory (e.g. 4GiB; 0B = auto)")
	flag.UintVar(&cpuThreads, "c", 0, "producer threads (0 = all cores)")
	flag.UintVar(&cpuThreads, "cpu", 0, "producer threads (0 = all cores)")
	flag.BoolVar(&noDirectIO, "d", false, "disable direct i/o")
	flag.BoolVar(&noDirectIO, "ddio", false, "disable direct i/o")
	flag.BoolVar(&noAsyncIO, "a", false, "disable async writing (single buffer mode)")
	flag.BoolVar(&noAsyncIO, "daio", false, "disable async writing (single buffer mode)")
	flag.BoolVar(&lowPrio, "l", false, "run with low priority")
	flag.BoolVar(&lowPrio, "prio", false, "run with low priority")
	flag.BoolVar(&quiet, "q", false, "non-verbose mode")
	flag.BoolVar(&quiet, "quiet", false, "non-verbose mode")
	flag.BoolVar(&benchmark, "b", false, "benchmark mode, no file output")
	flag.BoolVar(&benchmark, "bench", false, "benchmark mode, no file output")
	flag.Var(&gpus, "g", "GPU plat:dev:cores (repeatable)")
	flag.Var(&gpus, "gpu", "GPU plat:dev:cores (repeatable)")
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	seen := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	has := func(names ...string) bool {
		for _, n := range names {
			if seen[n] {
				return true
			}
		}
		return false
	}

	if len(gpus) > 0 {
		fatal("this build has no OpenCL support; -g is unavailable")
	}
	if !has("i", "id") {
		fatal("numeric account id (-i) is required")
	}
	if !has("n") {
		fatal("nonce count (-n) is required")
	}
	useAuto := has("A", "sna")
	if useAuto && has("s", "sn") {
		fatal("--sna and -s are mutually exclusive")
	}
	if !useAuto && !has("s", "sn") {
		fatal("a starting nonce (-s) or --sna is required")
	}
	if useAuto && autoCount == 0 {
		fatal("--sna count must be >= 1")
	}

	memLimit, err := plotter.ParseMemory(memString)
	if err != nil {
		fatal("%v", err)
	}

	if outputPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			fatal("cannot determine working directory: %v", err)
		}
		outputPath = wd
	}

	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = runtime.NumCPU()
	}
	threads := cores
	if cpuThreads > 0 {
		threads = int(cpuThreads)
		if threads > 2*cores {
			threads = 2 * cores
		}
	}

	con := console.New(quiet)
	if lowPrio {
		if err := diskio.SetLowPriority(); err != nil {
			con.Warnf("couldn't lower process priority: %v", err)
		}
	}

	task := plotter.Task{
		NumericID:   numericID,
		StartNonce:  startNonce,
		Nonces:      nonces,
		OutputPath:  outputPath,
		MemoryLimit: memLimit,
		CPUThreads:  threads,
		DirectIO:    !noDirectIO,
		AsyncIO:     !noAsyncIO,
		Benchmark:   benchmark,
	}
	p := plotter.New(con)

	if !useAuto {
		if err := p.Run(&task); err != nil {
			fatal("%v", err)
		}
		return
	}

	start, perFile := plotter.NextStart(outputPath, numericID, nonces)
	con.Printf("--sna enabled: plotting %d sequential file(s) starting from nonce %d", autoCount, start)
	if perFile != nonces {
		con.Printf("Detected nonce count per file from existing plots: %d", perFile)
	}
	for i := uint64(0); i < autoCount; i++ {
		t := task
		t.StartNonce = start
		con.Printf("File %d of %d: start nonce %d", i+1, autoCount, start)
		if err := p.Run(&t); err != nil {
			fatal("%v", err)
		}
		// Rescan so the next file chains after what was actually created.
		start += plotter.PlottedCount(outputPath, numericID, start, perFile)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
