package examples

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/templating"
)

func TestLoadBuiltin(t *testing.T) {
	registry, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}

	want := "blink,button,heartbeat,i2c_scanner,ssd1306"
	if got := strings.Join(registry.Names(), ","); got != want {
		t.Fatalf("Names() = %s, want %s", got, want)
	}

	for _, name := range registry.Names() {
		ex, _ := registry.Get(name)
		if !ex.HasScript() {
			t.Errorf("example %s has no script", name)
		}
	}

	hb, _ := registry.Get("heartbeat")
	if !hb.Async {
		t.Error("heartbeat should require async")
	}
}

func TestRenderScript(t *testing.T) {
	registry, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	blink, ok := registry.Get("blink")
	if !ok {
		t.Fatal("blink example missing")
	}
	templates := templating.NewEngine()

	tests := []struct {
		name  string
		props map[string]interface{}
		want  string
	}{
		{
			name: "default rate",
			want: "ctx.delay.delay_ms(1000)",
		},
		{
			name:  "overridden rate",
			props: map[string]interface{}{"blink_rate_ms": 250},
			want:  "ctx.delay.delay_ms(250)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := blink.RenderScript(templates, tt.props)
			if err != nil {
				t.Fatalf("RenderScript() error = %v", err)
			}
			if !strings.Contains(script, tt.want) {
				t.Errorf("script does not contain %q:\n%s", tt.want, script)
			}
		})
	}
}

func TestMissingProps(t *testing.T) {
	ex := &Example{Name: "x", Props: map[string]interface{}{"b": 1, "a": 2}}

	tests := []struct {
		name  string
		props map[string]interface{}
		want  string
	}{
		{name: "none set", want: "a,b"},
		{name: "one set", props: map[string]interface{}{"b": 5}, want: "a"},
		{name: "all set", props: map[string]interface{}{"a": 1, "b": 2, "c": 3}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(ex.MissingProps(tt.props), ","); got != tt.want {
				t.Errorf("MissingProps() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "name mismatch",
			fsys: fstest.MapFS{"one/example.yaml": {Data: []byte("name: two\n")}},
		},
		{
			name: "missing name",
			fsys: fstest.MapFS{"one/example.yaml": {Data: []byte("description: x\n")}},
		},
		{
			name: "bad yaml",
			fsys: fstest.MapFS{"one/example.yaml": {Data: []byte("name: [\n")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys)
			if !engine.HasCode(err, engine.ErrCodeParse) {
				t.Fatalf("Load() error = %v, want PARSE_ERROR", err)
			}
		})
	}
}

func TestLoadSkipsPlainDirectories(t *testing.T) {
	registry, err := Load(fstest.MapFS{
		"notes/readme.txt":   {Data: []byte("hi")},
		"solo/example.yaml":  {Data: []byte("name: solo\n")},
		"top-level-file.txt": {Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	solo, ok := registry.Get("solo")
	if !ok || solo.HasScript() || solo.Props == nil {
		t.Fatalf("solo = %+v, %v", solo, ok)
	}
	if len(registry.Names()) != 1 {
		t.Errorf("Names() = %v", registry.Names())
	}
}
