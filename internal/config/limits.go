package config

import (
	"fmt"
	"os"
	"strconv"
)

// ResourceLimits caps the numeric libraries underneath the recognizer. The
// thread count that reliably takes effect is the one passed to the engine
// (EngineThreads). The environment is only a fallback: libraries that read it
// in constructors before main runs (libgomp, OpenBLAS) will not see values
// set here, while code that reads it lazily at model load will.
type ResourceLimits struct {
	Threads int  // <=0 => 1
	CPUOnly bool // hide GPUs from the engine
}

func DefaultLimits() ResourceLimits {
	return ResourceLimits{Threads: 1, CPUOnly: true}
}

type EnvVar struct {
	Key   string
	Value string
}

var threadVars = []string{
	"OMP_NUM_THREADS",
	"OPENBLAS_NUM_THREADS",
	"MKL_NUM_THREADS",
	"NUMEXPR_NUM_THREADS",
}

func (l ResourceLimits) Env() []EnvVar {
	threads := strconv.Itoa(l.threads())
	out := make([]EnvVar, 0, len(threadVars)+1)
	for _, k := range threadVars {
		out = append(out, EnvVar{Key: k, Value: threads})
	}
	if l.CPUOnly {
		out = append(out, EnvVar{Key: "CUDA_VISIBLE_DEVICES", Value: ""})
	}
	return out
}

// Apply exports every variable the caller has not set yet and reports the
// ones it wrote.
func (l ResourceLimits) Apply() ([]EnvVar, error) {
	var set []EnvVar
	for _, v := range l.Env() {
		if _, ok := os.LookupEnv(v.Key); ok {
			continue
		}
		if err := os.Setenv(v.Key, v.Value); err != nil {
			return set, fmt.Errorf("setenv %s: %w", v.Key, err)
		}
		set = append(set, v)
	}
	return set, nil
}

func (l ResourceLimits) threads() int {
	if l.Threads <= 0 {
		return 1
	}
	return l.Threads
}

// EngineThreads is the thread count handed to the recognizer directly.
func (l ResourceLimits) EngineThreads() uint {
	return uint(l.threads())
}
