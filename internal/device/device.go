// Package device reports which compute devices the embedding backend can use.
package device

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// Kind identifies a compute device for the embedding model.
type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
	MPS  Kind = "mps"
)

// ErrUnknownKind indicates a device name outside the supported set.
var ErrUnknownKind = errors.New("unknown device kind")

// Kinds lists every supported device kind in preference order.
// Detection prefers accelerators over cpu when auto-selecting.
func Kinds() []Kind {
	return []Kind{CUDA, MPS, CPU}
}

// ParseKind validates a device name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case CPU, CUDA, MPS:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q (valid: cpu, cuda, mps)", ErrUnknownKind, s)
}

// Availability maps each device kind to whether it can be used on this host.
type Availability map[Kind]bool

// Available lists the usable kinds in preference order.
func (a Availability) Available() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if a[k] {
			out = append(out, k)
		}
	}
	return out
}

// Best returns the preferred usable device. CPU is always usable, so Best
// never fails.
func (a Availability) Best() Kind {
	for _, k := range Kinds() {
		if a[k] {
			return k
		}
	}
	return CPU
}

var (
	detectOnce sync.Once
	detected   Availability
)

// Detect probes the host once and caches the result for the process
// lifetime. Capabilities do not change while we run.
func Detect() Availability {
	detectOnce.Do(func() {
		detected = probe()
	})
	return detected
}

func probe() Availability {
	return Availability{
		CPU:  true,
		CUDA: hasCUDA(),
		MPS:  runtime.GOOS == "darwin" && runtime.GOARCH == "arm64",
	}
}

// hasCUDA checks for an NVIDIA driver without loading any GPU library.
func hasCUDA() bool {
	if _, err := os.Stat("/dev/nvidiactl"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
