//go:build linux

package engine

import "golang.org/x/sys/unix"

// pinWorker pins the calling goroutine's OS thread to logical CPU id,
// best-effort. Failures are ignored: affinity is a scheduling hint, not a
// correctness requirement, and a container's cgroup may legitimately
// restrict the available mask.
func pinWorker(id int) {
	var set unix.CPUSet
	set.Zero()
	set.Set(id)
	unix.SchedSetaffinity(0, &set)
}
