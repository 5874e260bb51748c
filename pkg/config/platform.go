package config

import (
	"fmt"
	"sort"
	"strings"
)

// Platform identifies the target chip.
type Platform string

const (
	PlatformESP32   Platform = "esp32"
	PlatformESP32C2 Platform = "esp32c2"
	PlatformESP32C3 Platform = "esp32c3"
	PlatformESP32C6 Platform = "esp32c6"
	PlatformESP32H2 Platform = "esp32h2"
	PlatformESP32S2 Platform = "esp32s2"
	PlatformESP32S3 Platform = "esp32s3"
)

// PlatformInfo describes the pin layout of a chip.
type PlatformInfo struct {
	Platform Platform
	// Target is the Rust target triple used for the generated project.
	Target string
	// GPIOMax is the highest valid GPIO number.
	GPIOMax int
	// StrappingPins are sampled at reset and should not drive loads.
	StrappingPins []int
}

// MaxGPIOCeiling is the highest GPIO number of any supported chip.
const MaxGPIOCeiling = 48

var platforms = map[Platform]PlatformInfo{
	PlatformESP32:   {Platform: PlatformESP32, Target: "xtensa-esp32-none-elf", GPIOMax: 39, StrappingPins: []int{0, 2, 5, 12, 15}},
	PlatformESP32C2: {Platform: PlatformESP32C2, Target: "riscv32imc-unknown-none-elf", GPIOMax: 20, StrappingPins: []int{8, 9}},
	PlatformESP32C3: {Platform: PlatformESP32C3, Target: "riscv32imc-unknown-none-elf", GPIOMax: 21, StrappingPins: []int{2, 8, 9}},
	PlatformESP32C6: {Platform: PlatformESP32C6, Target: "riscv32imac-unknown-none-elf", GPIOMax: 30, StrappingPins: []int{8, 9, 15}},
	PlatformESP32H2: {Platform: PlatformESP32H2, Target: "riscv32imac-unknown-none-elf", GPIOMax: 27, StrappingPins: []int{8, 9, 25}},
	PlatformESP32S2: {Platform: PlatformESP32S2, Target: "xtensa-esp32s2-none-elf", GPIOMax: 46, StrappingPins: []int{0, 45, 46}},
	PlatformESP32S3: {Platform: PlatformESP32S3, Target: "xtensa-esp32s3-none-elf", GPIOMax: MaxGPIOCeiling, StrappingPins: []int{0, 3, 45, 46}},
}

// LookupPlatform returns the pin layout for p.
func LookupPlatform(p Platform) (PlatformInfo, error) {
	info, ok := platforms[Platform(strings.ToLower(string(p)))]
	if !ok {
		return PlatformInfo{}, fmt.Errorf("unsupported platform %q (supported: %s)", p, strings.Join(SupportedPlatforms(), ", "))
	}
	return info, nil
}

// SupportedPlatforms lists platform identifiers in sorted order.
func SupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for p := range platforms {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// GPIOCeiling returns the highest valid pin for p, falling back to the
// largest ceiling of any chip when p is unknown.
func GPIOCeiling(p Platform) int {
	if info, err := LookupPlatform(p); err == nil {
		return info.GPIOMax
	}
	return MaxGPIOCeiling
}

// IsStrappingPin reports whether pin is a strapping pin on p.
func (i PlatformInfo) IsStrappingPin(pin int) bool {
	for _, sp := range i.StrappingPins {
		if sp == pin {
			return true
		}
	}
	return false
}
