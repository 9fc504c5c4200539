package calibration

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// cpuModel is a coarse machine identifier for display.
func cpuModel() string {
	return fmt.Sprintf("%s-%d-cores", runtime.GOARCH, runtime.NumCPU())
}

// cpuFeatures lists the instruction-set extensions that change big.Int and
// sieve throughput. Profiles measured with a different list are discarded.
func cpuFeatures() string {
	var feats []string
	add := func(name string, ok bool) {
		if ok {
			feats = append(feats, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add("avx2", cpu.X86.HasAVX2)
		add("avx512f", cpu.X86.HasAVX512F)
		add("bmi2", cpu.X86.HasBMI2)
		add("adx", cpu.X86.HasADX)
		add("popcnt", cpu.X86.HasPOPCNT)
	case "arm64":
		add("asimd", cpu.ARM64.HasASIMD)
		add("sve", cpu.ARM64.HasSVE)
		add("atomics", cpu.ARM64.HasATOMICS)
	}
	if len(feats) == 0 {
		return "generic"
	}
	return strings.Join(feats, ",")
}
