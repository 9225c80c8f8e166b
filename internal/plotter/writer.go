package plotter

import (
	"io"
	"os"

	"plotter/internal/buffer"
	"plotter/internal/console"
	"plotter/internal/diskio"
	"plotter/internal/progress"
)

// writer owns the output file. Frames can complete out of order under an
// uneven producer schedule, so incoming jobs park in a reorder map until
// the next contiguous nonce range arrives; everything the writer flushes
// advances nonces-written monotonically.
type writer struct {
	con     *console.Console
	task    *Task
	written uint64 // nonces persisted so far
	direct  bool
	tr      *progress.Tracker
}

func (w *writer) run(full <-chan *writeJob, empty chan<- *buffer.Frame) {
	pending := make(map[uint64]*writeJob)
	next := w.task.StartNonce + w.written
	for job := range full {
		pending[job.base] = job
		for {
			j, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			w.writeFrame(j)
			next += j.nonces
			empty <- j.frame
		}
	}
}

func (w *writer) writeFrame(job *writeJob) {
	if !w.task.Benchmark {
		w.flushFrame(job)
	}
	w.written += job.nonces
	w.tr.Add(job.nonces * NonceSize)
	if !w.task.Benchmark && w.written < w.task.Nonces {
		if err := WriteResumeInfo(w.task.FilePath(), w.written); err != nil {
			w.con.Errorf("couldn't write resume info: %v", err)
		}
	}
}

// flushFrame transposes one frame into the file: for every scoop, the
// frame's contiguous stripe segment is written at the stripe's offset
// for the current nonce position, chunked into 1 MiB writes. Chunk
// failures skip the rest of that scoop and never abort the run.
func (w *writer) flushFrame(job *writeJob) {
	path := w.task.FilePath()
	fh, err := w.open(path)
	if err != nil {
		w.con.Errorf("open %s: %v, dropping %d nonces", path, err, job.nonces)
		return
	}
	defer fh.Close()

	buf := job.frame.Bytes()
	for scoop := 0; scoop < NumScoops; scoop++ {
		fileOff := (int64(scoop)*int64(w.task.Nonces) + int64(w.written)) * ScoopSize
		if _, err := fh.Seek(fileOff, io.SeekStart); err != nil {
			w.con.Errorf("seek failed for scoop %d: %v, skipping scoop", scoop, err)
			continue
		}
		off := scoop * job.stride * ScoopSize
		remaining := job.nonces
		for remaining > 0 {
			chunk := uint64(TaskSize)
			if chunk > remaining {
				chunk = remaining
			}
			n := int(chunk) * ScoopSize
			if _, err := fh.Write(buf[off : off+n]); err != nil {
				w.con.Errorf("write failed in scoop %d: %v, skipping chunk", scoop, err)
				break
			}
			off += n
			remaining -= chunk
		}
	}
}

// open opens the plot file with the task's I/O mode. An EINVAL from a
// filesystem without direct-I/O support switches the writer to buffered
// opens for the remainder of the run.
func (w *writer) open(path string) (*os.File, error) {
	if w.direct {
		fh, err := diskio.OpenDirect(path)
		if err == nil {
			return fh, nil
		}
		if !diskio.IsDirectUnsupported(err) {
			return nil, err
		}
		w.direct = false
	}
	return diskio.Open(path)
}
