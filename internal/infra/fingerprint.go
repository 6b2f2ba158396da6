package infra

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Fingerprint returns a stable hardware id: sha256 of hostname, CPU model, total memory and arch.
func Fingerprint(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read host info: %w", err)
	}

	cpuModel := "unknown"
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		cpuModel = cpus[0].ModelName
	}

	var totalMem uint64
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		totalMem = vm.Total
	}

	return fingerprintOf(info.Hostname, cpuModel, totalMem, runtime.GOARCH), nil
}

func fingerprintOf(hostname, cpuModel string, totalMem uint64, arch string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%d-%s", hostname, cpuModel, totalMem, arch)))
	return hex.EncodeToString(sum[:])
}
