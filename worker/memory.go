// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
)

const mib = 1 << 20

// HeapInUse returns the bytes of allocated heap objects.
func HeapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// memoryLimitMB returns the runtime memory limit (GOMEMLIMIT) in MiB, or fallback when unset.
func memoryLimitMB(fallback float64) float64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		return float64(limit) / mib
	}
	return fallback
}

func (w *Worker) memoryInfo() MemoryInfo {
	used := float64(w.cfg.MemUsage()) / mib
	limit := memoryLimitMB(w.cfg.LimitMB)
	mi := MemoryInfo{UsedMB: used, LimitMB: limit, Tasks: w.session.Tasks()}
	if limit > 0 {
		mi.PercentUsed = used / limit * 100
	}
	return mi
}

// checkPressure sends RECYCLE_SUGGESTED once per session when memory use
// or the served task count crosses its threshold.
func (w *Worker) checkPressure(ctx context.Context, mi MemoryInfo) {
	if mi.UsedMB < w.cfg.RecycleMB && mi.Tasks < w.cfg.MaxTasks {
		return
	}
	if !w.recycle.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info("recycle suggested", "usedMB", mi.UsedMB, "tasks", mi.Tasks)
	w.send(ctx, Response{Type: RecycleSuggested, Memory: &mi})
}
