package backend

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"gitlab.com/nvctl/gpu-undervolt/gpu"
)

// NVML implements GPUReader with live readings from the driver.
type NVML struct{}

func (n *NVML) Snapshot() ([]gpu.Reading, error) {
	ret := nvml.Init()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to initialize nvml: %s", nvml.ErrorString(ret))
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to count devices: %s", nvml.ErrorString(ret))
	}

	readings := make([]gpu.Reading, 0, count)
	for i := 0; i < count; i++ {
		device, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("failed to get device %d: %s", i, nvml.ErrorString(ret))
		}

		reading := gpu.Reading{Index: i}

		if name, ret := device.GetName(); ret == nvml.SUCCESS {
			reading.Name = name
		}
		if power, ret := device.GetPowerUsage(); ret == nvml.SUCCESS {
			reading.PowerDraw = float64(power) / 1000 // mW to W
		}
		if mode, ret := device.GetPersistenceMode(); ret == nvml.SUCCESS {
			reading.Persistence = mode == nvml.FEATURE_ENABLED
		}
		if state, ret := device.GetPerformanceState(); ret == nvml.SUCCESS {
			reading.Pstate = int(state)
		}

		readings = append(readings, reading)
	}

	return readings, nil
}
