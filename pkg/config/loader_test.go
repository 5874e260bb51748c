package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/espforge/espforge/pkg/engine"
)

const blinkYAML = `
espforge:
  name: blink
  platform: esp32c3
esp32:
  gpio:
    LED_PIN:
      pin: 5
      direction: output
  spi:
    SPI_BUS:
      spi: 2
      mosi: 7
      sck: 6
  i2c:
    I2C_BUS:
      i2c: 0
      sda: 8
      scl: 9
  uart:
    CONSOLE:
      uart: 1
      tx: 21
      rx: 20
components:
  red_led:
    using: led
    with:
      gpio: $LED_PIN
app:
  variables:
    count:
      type: int
      initial: 0
  setup:
    - set:
        variable: count
        value: 0
  loop:
    - $red_led.toggle: null
`

func TestLoader_Parse(t *testing.T) {
	l := NewLoader()
	cfg, err := l.Parse([]byte(blinkYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Espforge.Name != "blink" {
		t.Errorf("name = %q", cfg.Espforge.Name)
	}
	if cfg.Espforge.Platform != PlatformESP32C3 {
		t.Errorf("platform = %q", cfg.Espforge.Platform)
	}
	if got := cfg.Hardware.GPIO["LED_PIN"].Pin; got != 5 {
		t.Errorf("LED_PIN.pin = %d, want 5", got)
	}

	spi := cfg.Hardware.SPI["SPI_BUS"]
	if spi.MISO != UnusedPin || spi.CS != UnusedPin {
		t.Errorf("spi defaults not applied: miso=%d cs=%d", spi.MISO, spi.CS)
	}
	if spi.Frequency != DefaultSPIFrequency {
		t.Errorf("spi frequency = %d", spi.Frequency)
	}
	if cfg.Hardware.I2C["I2C_BUS"].Frequency != DefaultI2CFrequency {
		t.Errorf("i2c frequency = %d", cfg.Hardware.I2C["I2C_BUS"].Frequency)
	}
	if cfg.Hardware.UART["CONSOLE"].Baud != DefaultUARTBaud {
		t.Errorf("uart baud = %d", cfg.Hardware.UART["CONSOLE"].Baud)
	}

	if len(cfg.App.Setup) != 1 || len(cfg.App.Loop) != 1 {
		t.Fatalf("unexpected action lists: %+v", cfg.App)
	}
	key, _, ok := cfg.App.Loop[0].Single()
	if !ok || key != "$red_led.toggle" {
		t.Errorf("loop[0] = %q, %v", key, ok)
	}
	if !cfg.VariableDeclared("count") || cfg.VariableDeclared("other") {
		t.Error("VariableDeclared mismatch")
	}
}

func TestLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "empty document",
			yaml:    "",
			wantMsg: "empty",
		},
		{
			name:    "malformed yaml",
			yaml:    "espforge: [unclosed",
			wantMsg: "malformed",
		},
		{
			name:    "missing name",
			yaml:    "espforge:\n  platform: esp32c3\n",
			wantMsg: "name is required",
		},
		{
			name:    "invalid platform",
			yaml:    "espforge:\n  name: x\n  platform: esp8266\n",
			wantMsg: "unsupported platform",
		},
		{
			name:    "instance without using",
			yaml:    "espforge:\n  name: x\n  platform: esp32\ncomponents:\n  led:\n    with: {}\n",
			wantMsg: "using is required",
		},
		{
			name:    "bad direction",
			yaml:    "espforge:\n  name: x\n  platform: esp32\nesp32:\n  gpio:\n    P:\n      pin: 1\n      direction: sideways\n",
			wantMsg: "direction must be one of",
		},
	}

	l := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !engine.HasCode(err, engine.ErrCodeParse) {
				t.Errorf("expected parse error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "espforge.yaml")
	if err := os.WriteFile(path, []byte(blinkYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	cfg, err := l.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if names := cfg.ComponentNames(); len(names) != 1 || names[0] != "red_led" {
		t.Errorf("ComponentNames() = %v", names)
	}

	_, err = l.LoadFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "missing.yaml") {
		t.Errorf("expected error naming the file, got %v", err)
	}
}

func TestPlatformTable(t *testing.T) {
	tests := []struct {
		platform Platform
		ceiling  int
		strap    int
	}{
		{PlatformESP32C3, 21, 9},
		{PlatformESP32, 39, 12},
		{PlatformESP32S3, 48, 46},
		{Platform("unknown"), MaxGPIOCeiling, -1},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			if got := GPIOCeiling(tt.platform); got != tt.ceiling {
				t.Errorf("GPIOCeiling() = %d, want %d", got, tt.ceiling)
			}
			info, err := LookupPlatform(tt.platform)
			if tt.strap < 0 {
				if err == nil {
					t.Error("expected unsupported platform error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !info.IsStrappingPin(tt.strap) {
				t.Errorf("pin %d should be a strapping pin on %s", tt.strap, tt.platform)
			}
		})
	}
}
