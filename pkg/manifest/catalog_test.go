package manifest

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/espforge/espforge/pkg/engine"
)

func TestLoadBuiltin(t *testing.T) {
	catalog, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}

	want := []string{"button", "delay", "i2c", "ili9341", "led", "logger", "signal", "spi", "ssd1306", "uart"}
	got := catalog.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", got, want)
	}

	led, ok := catalog.Get("led")
	if !ok {
		t.Fatal("expected led manifest")
	}
	if led.Category != CategoryComponent {
		t.Errorf("led category = %q, want %q", led.Category, CategoryComponent)
	}
	if led.Source != "components/led.yaml" {
		t.Errorf("led source = %q", led.Source)
	}
	if !led.HasMethod("toggle") {
		t.Error("led should define toggle")
	}
	p, ok := led.Parameter("gpio")
	if !ok || p.Type != ParamGpioRef || !p.Required {
		t.Errorf("led gpio parameter = %+v, %v", p, ok)
	}

	logger, _ := catalog.Get("logger")
	if logger.Category != CategoryGlobal {
		t.Errorf("logger category = %q", logger.Category)
	}
	if len(logger.Requires) != 1 || logger.Requires[0] != "esp-println" {
		t.Errorf("logger requires = %v", logger.Requires)
	}
}

func TestCatalogList(t *testing.T) {
	catalog, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}

	all := catalog.List("")
	if len(all) != catalog.Len() {
		t.Fatalf("List(\"\") returned %d manifests, want %d", len(all), catalog.Len())
	}
	if all[0].Category != CategoryComponent || all[len(all)-1].Category != CategoryDevice {
		t.Errorf("List should order components first and devices last")
	}

	devices := catalog.List(CategoryDevice)
	if len(devices) != 2 || devices[0].Name != "ili9341" || devices[1].Name != "ssd1306" {
		names := make([]string, len(devices))
		for i, d := range devices {
			names[i] = d.Name
		}
		t.Errorf("List(devices) = %v", names)
	}
}

func TestCatalogDuplicates(t *testing.T) {
	ledA := &Manifest{Name: "led", Source: "components/led.yaml"}
	ledB := &Manifest{Name: "led", Source: "devices/led.yaml"}

	_, err := NewCatalog([]*Manifest{ledA}, []*Manifest{ledB})
	if err == nil {
		t.Fatal("expected duplicate manifest error")
	}
	if !engine.HasCode(err, engine.ErrCodeDuplicateManifest) {
		t.Fatalf("error code = %q, want %q", engine.CodeOf(err), engine.ErrCodeDuplicateManifest)
	}
	for _, source := range []string{ledA.Source, ledB.Source} {
		if !strings.Contains(err.Error(), source) {
			t.Errorf("error %q should name %s", err.Error(), source)
		}
	}
}

func TestCatalogExtend(t *testing.T) {
	base, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}

	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr bool
		wantLen int
	}{
		{
			name: "new component",
			fsys: fstest.MapFS{
				"components/buzzer.yaml": {Data: []byte(buzzerManifest)},
			},
			wantLen: base.Len() + 1,
		},
		{
			name: "collision with builtin",
			fsys: fstest.MapFS{
				"devices/led.yaml": {Data: []byte("name: led\nsetup_template: \"\"\n")},
			},
			wantErr: true,
		},
		{
			name:    "empty directory",
			fsys:    fstest.MapFS{},
			wantLen: base.Len(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extended, err := base.Extend(tt.fsys)
			if tt.wantErr {
				if !engine.HasCode(err, engine.ErrCodeDuplicateManifest) {
					t.Fatalf("Extend() error = %v, want DUPLICATE_MANIFEST", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extend() error = %v", err)
			}
			if extended.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", extended.Len(), tt.wantLen)
			}
		})
	}

	if base.Len() != 10 {
		t.Errorf("Extend must not mutate the base catalog, Len() = %d", base.Len())
	}
}

func TestLoaderParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "valid",
			data: buzzerManifest,
		},
		{
			name:    "unknown parameter type",
			data:    "name: x\nparameters:\n  - name: p\n    type: Float\n",
			wantErr: "unknown parameter type",
		},
		{
			name:    "missing name",
			data:    "requires: []\n",
			wantErr: "invalid manifest",
		},
		{
			name:    "duplicate parameter",
			data:    "name: x\nparameters:\n  - {name: p, type: String}\n  - {name: p, type: Integer}\n",
			wantErr: "declared twice",
		},
		{
			name:    "dotted name",
			data:    "name: a.b\n",
			wantErr: "must not contain",
		},
		{
			name:    "method without template",
			data:    "name: x\nmethods:\n  beep: {}\n",
			wantErr: "invalid manifest",
		},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := loader.Parse([]byte(tt.data), "test.yaml")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				if m.Source != "test.yaml" || m.Methods == nil {
					t.Errorf("Parse() = %+v", m)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

const buzzerManifest = `name: buzzer
parameters:
  - name: gpio
    type: GpioRef
    required: true
  - name: tone
    type: Integer
setup_template: "let mut {{ name }} = Buzzer::new({{ params.gpio.pin }});"
methods:
  beep:
    template: "{{ target }}.beep({{ args }});"
`
