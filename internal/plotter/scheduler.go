package plotter

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"plotter/internal/buffer"
	"plotter/internal/console"
	"plotter/internal/diskio"
	"plotter/internal/poc"
	"plotter/internal/progress"
	"plotter/internal/shabal"
)

// Plotter runs plot tasks through a producer pool and a single writer.
type Plotter struct {
	con *console.Console

	// width pins the kernel lane width; 0 selects by CPU capability.
	width int
}

// New returns a Plotter reporting through con.
func New(con *console.Console) *Plotter {
	return &Plotter{con: con}
}

// writeJob is a filled frame on its way to the writer: nonces holds how
// many of the frame's stride-capacity slots carry data, starting at the
// absolute nonce number base.
type writeJob struct {
	frame  *buffer.Frame
	base   uint64
	nonces uint64
	stride int
}

type fillJob struct {
	writeJob
	remaining atomic.Int64
}

// workUnit claims one kernel batch: lane-count consecutive nonces
// beginning at frame index.
type workUnit struct {
	job   *fillJob
	index int
}

// Run executes one plot task to completion.
func (p *Plotter) Run(task *Task) error {
	width, isa := p.laneWidth()
	lanes := uint64(width)
	rounded := task.Nonces / lanes * lanes
	threads := producerThreads(task.CPUThreads)

	p.con.Headerf("Plot %s", task.FileName())
	p.con.Printf("Kernel: %d-lane %s, %d producer thread(s)", width, isa, threads)
	if rounded != task.Nonces {
		p.con.Warnf("nonce count %d rounded down to %d (multiple of the %d-lane kernel)",
			task.Nonces, rounded, width)
	}

	path := task.FilePath()
	var resumed uint64
	if !task.Benchmark {
		if r, err := ReadResumeInfo(path); err == nil {
			resumed = r
			if resumed > rounded {
				resumed = rounded
			}
			p.con.Printf("Resuming %s at nonce offset %d", task.FileName(), resumed)
		} else {
			need := task.PlotSize()
			if free, ferr := diskio.FreeSpace(task.OutputPath); ferr == nil && free < need {
				return fmt.Errorf("not enough disk space in %s: need %s, have %s",
					task.OutputPath, humanize.IBytes(need), humanize.IBytes(free))
			}
			fast, err := diskio.Preallocate(path, need, task.DirectIO)
			if err != nil {
				return fmt.Errorf("preallocate plot file: %w", err)
			}
			if !fast {
				p.con.Warnf("fast preallocation unavailable, continuing with slow zero-fill")
			}
			if err := WriteResumeInfo(path, 0); err != nil {
				return fmt.Errorf("write resume marker: %w", err)
			}
		}
	}

	todo := rounded - resumed
	if todo == 0 {
		if rounded == task.Nonces {
			p.con.Printf("%s is already complete", task.FileName())
		} else {
			p.con.Warnf("nothing to plot for %s: %d requested nonces round to %d",
				task.FileName(), task.Nonces, rounded)
		}
		return nil
	}

	frameNonces, frameCount, err := frameSize(task, todo, width)
	if err != nil {
		return err
	}
	p.con.Printf("Buffers: %d frame(s) of %s (%d nonces each)",
		frameCount, humanize.IBytes(frameNonces*NonceSize), frameNonces)

	empty := make(chan *buffer.Frame, frameCount)
	for i := 0; i < frameCount; i++ {
		empty <- buffer.NewFrame(int(frameNonces) * NonceSize)
	}
	full := make(chan *writeJob, frameCount)
	work := make(chan workUnit, threads*2)

	label := "Writing"
	if task.Benchmark {
		label = "Hashing"
	}
	tr := progress.New(label, todo*NonceSize, p.con.Quiet())

	w := &writer{
		con:     p.con,
		task:    task,
		written: resumed,
		direct:  task.DirectIO,
		tr:      tr,
	}
	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		w.run(full, empty)
	}()

	var prodWG sync.WaitGroup
	for i := 0; i < threads; i++ {
		prodWG.Add(1)
		go func() {
			defer prodWG.Done()
			kernel, err := shabal.NewKernel(width)
			if err != nil {
				panic(err) // width came from the dispatch table
			}
			gen := poc.NewGenerator(kernel)
			for u := range work {
				gen.PlotNonces(task.NumericID, u.job.base+uint64(u.index),
					u.job.frame.Bytes(), u.job.stride, u.index)
				if u.job.remaining.Add(-1) == 0 {
					full <- &u.job.writeJob
				}
			}
		}()
	}

	start := time.Now()
	assigned := uint64(0)
	for assigned < todo {
		frame := <-empty
		f := frameNonces
		if f > todo-assigned {
			f = todo - assigned
		}
		job := &fillJob{writeJob: writeJob{
			frame:  frame,
			base:   task.StartNonce + resumed + assigned,
			nonces: f,
			stride: int(frameNonces),
		}}
		job.remaining.Store(int64(f / lanes))
		for idx := uint64(0); idx < f; idx += lanes {
			work <- workUnit{job: job, index: int(idx)}
		}
		assigned += f
	}
	close(work)
	prodWG.Wait()
	close(full)
	writerWG.Wait()
	tr.Finish()

	elapsed := time.Since(start)
	if task.Benchmark {
		p.con.Printf("Benchmark: %d nonces hashed, %.0f nonces/s", todo, float64(todo)/elapsed.Seconds())
	} else {
		p.con.Printf("Wrote %d nonces to %s (%.0f nonces/min)", todo, path, float64(todo)/elapsed.Minutes())
	}
	return nil
}

func (p *Plotter) laneWidth() (int, string) {
	if p.width != 0 {
		return p.width, "pinned"
	}
	return shabal.PreferredWidth()
}

// producerThreads resolves the producer count: 0 means one per online
// logical CPU.
func producerThreads(requested int) int {
	if requested > 0 {
		return requested
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// frameSize picks the frame capacity in nonces: the largest chunk that
// keeps every frame within the memory budget, aligned down to the writer
// chunk when possible and always to the kernel lane count.
func frameSize(task *Task, todo uint64, width int) (frameNonces uint64, frameCount int, err error) {
	frameCount = 2
	if !task.AsyncIO {
		frameCount = 1
	}
	limit := task.MemoryLimit
	if limit == 0 {
		if vm, verr := mem.VirtualMemory(); verr == nil {
			limit = vm.Available
		} else {
			limit = todo * NonceSize * uint64(frameCount)
		}
	}

	lanes := uint64(width)
	per := limit / uint64(frameCount) / NonceSize
	if per > todo {
		per = todo
	}
	if per >= TaskSize {
		per = per / TaskSize * TaskSize
	} else {
		per = per / lanes * lanes
	}
	if per == 0 {
		return 0, 0, fmt.Errorf("memory cap %s cannot hold %d frame(s) of a single %d-lane batch (%s)",
			humanize.IBytes(limit), frameCount, width,
			humanize.IBytes(uint64(frameCount*width)*NonceSize))
	}
	return per, frameCount, nil
}
