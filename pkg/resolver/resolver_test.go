package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
)

const blinkDoc = `
espforge:
  name: blink
  platform: esp32c3
esp32:
  gpio:
    LED_PIN:
      pin: 5
      direction: output
    BTN:
      pin: 9
      direction: input
      pullup: true
    CS: {pin: 10}
    DC: {pin: 11}
    RST: {pin: 12}
  spi:
    BUS:
      spi: 2
      mosi: 6
      sck: 4
  i2c:
    I2C0: {i2c: 0, sda: 1, scl: 2}
components:
  red_led:
    using: led
    with:
      gpio: $LED_PIN
  button:
    using: button
    with:
      gpio: $BTN
  bus:
    using: spi
    with:
      spi: $BUS
  i2c_bus:
    using: i2c
    with:
      i2c: $I2C0
devices:
  tft:
    using: ili9341
    with:
      spi: $bus
      cs: $CS
      dc: $DC
      rst: $RST
  oled:
    using: ssd1306
    with:
      i2c: $i2c_bus
app:
  variables:
    count: {type: int, initial: 0}
    ratio: {type: float, initial: 1}
    lit: {type: bool}
    mode: {type: string}
  setup:
    - set: {variable: count, value: 0}
  loop:
    - $red_led.toggle: ~
    - delay.delay_ms: 1000
`

func loadDoc(t *testing.T, doc string) *config.ProjectConfig {
	t.Helper()
	cfg, err := config.NewLoader().Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	catalog, err := manifest.LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	return NewResolver(catalog, nil, nil, nil, zerolog.Nop())
}

func TestResolve(t *testing.T) {
	r := newTestResolver(t)
	cfg := loadDoc(t, blinkDoc)

	rc, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantInits := []string{
		"let mut button = Button::new(9, true, false);",
		"let mut bus = SPI::new(4, 6, 255, 255);",
		"let mut i2c_bus = I2C::new(1, 2);",
		"let mut red_led = LED::new(5);",
		"let mut oled = SSD1306Device::new(i2c_bus.into_inner());\noled.init();",
		"let mut tft_buffer = [0u8; 512];\nlet mut tft = ILI9341Device::new(bus, 10, 11, 12, &mut tft_buffer);",
	}
	if len(rc.Initializations) != len(wantInits) {
		t.Fatalf("Initializations = %q", rc.Initializations)
	}
	for i, want := range wantInits {
		if rc.Initializations[i] != want {
			t.Errorf("Initializations[%d] = %q, want %q", i, rc.Initializations[i], want)
		}
	}

	wantIncludes := "embedded-hal,embedded-hal,ssd1306,embedded-graphics,mipidsi,embedded-graphics"
	if got := strings.Join(rc.Includes, ","); got != wantIncludes {
		t.Errorf("Includes = %s, want %s", got, wantIncludes)
	}

	wantVars := []string{
		"let mut count: i32 = 0;",
		"let mut lit: bool = false;",
		"let mut mode: i32 = 0;",
		"let mut ratio: f32 = 1.0;",
	}
	if strings.Join(rc.Variables, "|") != strings.Join(wantVars, "|") {
		t.Errorf("Variables = %q, want %q", rc.Variables, wantVars)
	}

	if len(rc.SetupCode) != 1 || rc.SetupCode[0] != "count = 0;" {
		t.Errorf("SetupCode = %q", rc.SetupCode)
	}
	if strings.Join(rc.LoopCode, "|") != "red_led.toggle();|delay.delay_ms(1000);" {
		t.Errorf("LoopCode = %q", rc.LoopCode)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := newTestResolver(t)
	cfg := loadDoc(t, blinkDoc)

	first, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Resolve(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if strings.Join(again.Initializations, "\n") != strings.Join(first.Initializations, "\n") {
			t.Fatal("initializations differ between runs")
		}
	}
}

func TestResolveOptionalParameter(t *testing.T) {
	r := newTestResolver(t)
	cfg := loadDoc(t, blinkDoc)
	tft := cfg.Devices["tft"]
	tft.With["rotation"] = 2
	tft.With["inverted"] = true
	cfg.Devices["tft"] = tft

	code, _, err := r.ResolveInstance("tft", tft, NewResolutionContext(cfg))
	if err != nil {
		t.Fatalf("ResolveInstance() error = %v", err)
	}
	if !strings.HasSuffix(code, "tft.set_rotation(2);tft.invert(true);") {
		t.Errorf("ResolveInstance() = %q", code)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(cfg *config.ProjectConfig)
		wantCode string
		wantRes  string
	}{
		{
			name: "unknown manifest",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.Components["buzzer"] = config.Instance{Using: "buzzer"}
			},
			wantCode: engine.ErrCodeUnknownManifest,
			wantRes:  "buzzer",
		},
		{
			name: "missing required parameter",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.Components["red_led"] = config.Instance{Using: "led", With: map[string]interface{}{}}
			},
			wantCode: engine.ErrCodeMissingParameter,
			wantRes:  "red_led",
		},
		{
			name: "undefined hardware reference",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.Components["red_led"] = config.Instance{Using: "led", With: map[string]interface{}{"gpio": "$NOPE"}}
			},
			wantCode: engine.ErrCodeUndefinedReference,
			wantRes:  "red_led",
		},
		{
			name: "reference without sigil",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.Components["red_led"] = config.Instance{Using: "led", With: map[string]interface{}{"gpio": "LED_PIN"}}
			},
			wantCode: engine.ErrCodeUndefinedReference,
			wantRes:  "red_led",
		},
		{
			name: "device references unknown component",
			mutate: func(cfg *config.ProjectConfig) {
				oled := cfg.Devices["oled"]
				oled.With["i2c"] = "$missing_bus"
			},
			wantCode: engine.ErrCodeUndefinedReference,
			wantRes:  "oled",
		},
		{
			name: "empty setup action",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.App.Setup = append(cfg.App.Setup, config.Action{})
			},
			wantCode: engine.ErrCodeInvalidActionShape,
		},
		{
			name: "unknown loop action",
			mutate: func(cfg *config.ProjectConfig) {
				cfg.App.Loop = append(cfg.App.Loop, config.Action{"blink": 1})
			},
			wantCode: engine.ErrCodeUnknownActionFormat,
			wantRes:  "blink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t)
			cfg := loadDoc(t, blinkDoc)
			tt.mutate(cfg)

			_, err := r.Resolve(context.Background(), cfg)
			if !engine.HasCode(err, tt.wantCode) {
				t.Fatalf("Resolve() error = %v, want %s", err, tt.wantCode)
			}
			if tt.wantRes != "" && !strings.Contains(err.Error(), "resource="+tt.wantRes) {
				t.Errorf("error %q should name %s", err.Error(), tt.wantRes)
			}
		})
	}
}

func TestLifecycleOperationContext(t *testing.T) {
	r := newTestResolver(t)
	cfg := loadDoc(t, blinkDoc)
	cfg.App.Loop = append(cfg.App.Loop, config.Action{})

	_, _, err := r.ResolveLifecycle(cfg)
	if err == nil || !strings.Contains(err.Error(), "Empty action in loop block at index 2") {
		t.Fatalf("ResolveLifecycle() error = %v", err)
	}
}

func TestResolveCanceled(t *testing.T) {
	r := newTestResolver(t)
	cfg := loadDoc(t, blinkDoc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, cfg); err != context.Canceled {
		t.Fatalf("Resolve() error = %v, want context.Canceled", err)
	}
}
