package sandbox

import (
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// LimitMonitor samples process-level memory and elapsed wall/CPU time at
// yield points and raises the authoritative LimitExceeded errors. It wraps
// gopsutil since the standard library exposes no portable per-process
// memory/CPU readback.
type LimitMonitor struct {
	limits    dsl.ResourceLimits
	startedAt time.Time
	proc      *process.Process
	threads   int32
	fileHandles int32
}

// NewLimitMonitor builds a monitor for the current OS process. If gopsutil
// cannot attach to the process (unsupported platform, permissions), memory
// and CPU checks become no-ops and only wall-time/thread/file-handle limits
// are enforced.
func NewLimitMonitor(limits dsl.ResourceLimits) *LimitMonitor {
	m := &LimitMonitor{limits: limits, startedAt: time.Now()}
	if p, err := process.NewProcess(int32(currentPID())); err == nil {
		m.proc = p
	}
	return m
}

// CheckWallTime raises WallTimeExceeded if the elapsed time since the
// monitor was created exceeds MaxWallTimeMs.
func (m *LimitMonitor) CheckWallTime() error {
	if m.limits.MaxWallTimeMs == nil {
		return nil
	}
	elapsed := time.Since(m.startedAt).Milliseconds()
	if elapsed > *m.limits.MaxWallTimeMs {
		return pipelineerr.LimitExceeded(pipelineerr.KindWallLimit, "wall time limit exceeded")
	}
	return nil
}

// CheckMemory samples RSS via gopsutil and raises MemoryLimitExceeded if it
// exceeds MaxMemoryMB.
func (m *LimitMonitor) CheckMemory() error {
	if m.limits.MaxMemoryMB == nil || m.proc == nil {
		return nil
	}
	info, err := m.proc.MemoryInfo()
	if err != nil || info == nil {
		return nil
	}
	usedMB := int64(info.RSS / (1024 * 1024))
	if usedMB > *m.limits.MaxMemoryMB {
		return pipelineerr.LimitExceeded(pipelineerr.KindMemoryLimit, "memory limit exceeded")
	}
	return nil
}

// CheckCPUTime samples cumulative CPU time via gopsutil and raises
// CpuTimeLimitExceeded if it exceeds MaxCPUTimeMs.
func (m *LimitMonitor) CheckCPUTime() error {
	if m.limits.MaxCPUTimeMs == nil || m.proc == nil {
		return nil
	}
	times, err := m.proc.Times()
	if err != nil || times == nil {
		return nil
	}
	cpuMs := int64((times.User + times.System) * 1000)
	if cpuMs > *m.limits.MaxCPUTimeMs {
		return pipelineerr.LimitExceeded(pipelineerr.KindCpuLimit, "cpu time limit exceeded")
	}
	return nil
}

// AcquireThread fails construction with ThreadLimitExceeded once MaxThreads
// concurrently acquired threads would be exceeded.
func (m *LimitMonitor) AcquireThread() error {
	if m.limits.MaxThreads == nil {
		return nil
	}
	n := atomic.AddInt32(&m.threads, 1)
	if int(n) > *m.limits.MaxThreads {
		atomic.AddInt32(&m.threads, -1)
		return pipelineerr.LimitExceeded(pipelineerr.KindThreadLimit, "thread limit exceeded")
	}
	return nil
}

// ReleaseThread returns a thread slot acquired via AcquireThread.
func (m *LimitMonitor) ReleaseThread() {
	if m.limits.MaxThreads == nil {
		return
	}
	atomic.AddInt32(&m.threads, -1)
}

// AcquireFileHandle fails with FileHandleLimitExceeded once MaxFileHandles
// concurrently open handles would be exceeded.
func (m *LimitMonitor) AcquireFileHandle() error {
	if m.limits.MaxFileHandles == nil {
		return nil
	}
	n := atomic.AddInt32(&m.fileHandles, 1)
	if int(n) > *m.limits.MaxFileHandles {
		atomic.AddInt32(&m.fileHandles, -1)
		return pipelineerr.LimitExceeded(pipelineerr.KindFileHandleLimit, "file handle limit exceeded")
	}
	return nil
}

// ReleaseFileHandle returns a handle slot acquired via AcquireFileHandle.
func (m *LimitMonitor) ReleaseFileHandle() {
	if m.limits.MaxFileHandles == nil {
		return
	}
	atomic.AddInt32(&m.fileHandles, -1)
}

// CheckAll runs every configured limit check and returns the first failure.
func (m *LimitMonitor) CheckAll() error {
	if err := m.CheckWallTime(); err != nil {
		return err
	}
	if err := m.CheckMemory(); err != nil {
		return err
	}
	if err := m.CheckCPUTime(); err != nil {
		return err
	}
	return nil
}
