// Package stats samples process memory and CPU usage while a workload runs.
package stats

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

type Sample struct {
	Elapsed time.Duration

	HeapAlloc  uint64
	HeapInuse  uint64
	Sys        uint64
	ProcessRSS uint64
	NumGC      uint32

	CPUPercent   float64
	NumGoroutine int
}

type Summary struct {
	Elapsed time.Duration
	Samples int

	PeakHeapAlloc  uint64
	PeakSys        uint64
	PeakProcessRSS uint64
	TotalAlloc     uint64
	GCCycles       uint32

	PeakCPUPercent float64
	AvgCPUPercent  float64
	PeakGoroutines int
}

// Collector samples runtime statistics on a fixed interval between Start and
// Stop.
type Collector struct {
	interval time.Duration
	proc     *process.Process

	mu      sync.Mutex
	start   time.Time
	samples []Sample
	startGC uint32

	stop chan struct{}
	done chan struct{}
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		interval: interval,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (c *Collector) Start() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.start = time.Now()
	c.startGC = mem.NumGC

	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stop:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{
		Elapsed:      time.Since(c.start),
		HeapAlloc:    mem.HeapAlloc,
		HeapInuse:    mem.HeapInuse,
		Sys:          mem.Sys,
		NumGC:        mem.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
		s.ProcessRSS = info.RSS
	}
	if cpu, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}

	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// Stop ends sampling and summarizes the collected samples.
func (c *Collector) Stop() Summary {
	close(c.stop)
	<-c.done

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.mu.Lock()
	defer c.mu.Unlock()

	sum := Summary{
		Elapsed:    time.Since(c.start),
		Samples:    len(c.samples),
		TotalAlloc: mem.TotalAlloc,
		GCCycles:   mem.NumGC - c.startGC,
	}

	var cpu float64
	for _, s := range c.samples {
		sum.PeakHeapAlloc = max(sum.PeakHeapAlloc, s.HeapAlloc)
		sum.PeakSys = max(sum.PeakSys, s.Sys)
		sum.PeakProcessRSS = max(sum.PeakProcessRSS, s.ProcessRSS)
		sum.PeakCPUPercent = max(sum.PeakCPUPercent, s.CPUPercent)
		sum.PeakGoroutines = max(sum.PeakGoroutines, s.NumGoroutine)
		cpu += s.CPUPercent
	}
	if len(c.samples) > 0 {
		sum.AvgCPUPercent = cpu / float64(len(c.samples))
	}

	return sum
}

// Samples returns a copy of the samples taken so far.
func (c *Collector) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.samples...)
}

// WriteReport renders the summary as aligned name/value lines.
func (s Summary) WriteReport(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	rows := []struct {
		name, value string
	}{
		{"duration", s.Elapsed.Round(time.Millisecond).String()},
		{"samples", humanize.Comma(int64(s.Samples))},
		{"peak heap", humanize.IBytes(s.PeakHeapAlloc)},
		{"peak sys", humanize.IBytes(s.PeakSys)},
		{"peak rss", humanize.IBytes(s.PeakProcessRSS)},
		{"total alloc", humanize.IBytes(s.TotalAlloc)},
		{"gc cycles", humanize.Comma(int64(s.GCCycles))},
		{"peak cpu", fmt.Sprintf("%.1f%%", s.PeakCPUPercent)},
		{"avg cpu", fmt.Sprintf("%.1f%%", s.AvgCPUPercent)},
		{"peak goroutines", humanize.Comma(int64(s.PeakGoroutines))},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", r.name, r.value); err != nil {
			return err
		}
	}

	return tw.Flush()
}
