package compile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
	"github.com/espforge/espforge/pkg/script"
	"github.com/espforge/espforge/pkg/stores"
	"github.com/espforge/espforge/pkg/telemetry"
)

const ledDoc = `
espforge:
  name: blink
  platform: esp32c3
esp32:
  gpio:
    LED_PIN:
      pin: %PIN%
      direction: output
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
    - $red_led.toggle: ~
`

func writeProject(t *testing.T, doc, appScript string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "espforge.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if appScript != "" {
		if err := os.WriteFile(filepath.Join(dir, "app.star"), []byte(appScript), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return path
}

func newCompiler(t *testing.T, history stores.HistoryStore) *Compiler {
	t.Helper()
	c, err := New(Options{History: history, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func newHistory(t *testing.T) *stores.SQLiteStore {
	t.Helper()
	s, err := stores.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("stores.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestCompileLEDPin(t *testing.T) {
	history := newHistory(t)
	c := newCompiler(t, history)
	ctx := context.Background()

	res, err := c.Compile(ctx, writeProject(t, strings.Replace(ledDoc, "%PIN%", "5", 1), ""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !res.GateOpen {
		t.Fatalf("gate closed: %+v", res.Findings)
	}
	rc := res.RenderContext
	if len(rc.Initializations) != 1 || rc.Initializations[0] != "let mut red_led = LED::new(5);" {
		t.Errorf("Initializations = %q", rc.Initializations)
	}
	if !contains(rc.Variables, "let mut count: i32 = 0;") {
		t.Errorf("Variables = %q", rc.Variables)
	}
	if !contains(rc.SetupCode, "count = 0;") {
		t.Errorf("SetupCode = %q", rc.SetupCode)
	}
	if !contains(rc.LoopCode, "red_led.toggle();") {
		t.Errorf("LoopCode = %q", rc.LoopCode)
	}

	run, err := history.GetRun(ctx, res.RunID.String())
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != stores.RunStatusSucceeded || run.Project != "blink" || run.Platform != "esp32c3" {
		t.Errorf("recorded run = %+v", run)
	}
	findings, err := history.ListFindings(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListFindings() error = %v", err)
	}
	if len(findings) == 0 {
		t.Error("no findings recorded")
	}

	// Pin 99 is above the esp32c3 ceiling.
	res, err = c.Compile(ctx, writeProject(t, strings.Replace(ledDoc, "%PIN%", "99", 1), ""))
	if !engine.HasCode(err, engine.ErrCodeValidationFailed) {
		t.Fatalf("Compile() error = %v, want VALIDATION_FAILED", err)
	}
	if res.GateOpen || res.RenderContext != nil {
		t.Errorf("rejected compile produced output: %+v", res)
	}
	var hardware engine.NibblerResult
	for _, r := range res.Findings {
		if r.Name == "hardware" {
			hardware = r
		}
	}
	if hardware.Status != engine.StatusError ||
		!contains(hardware.Findings, "Error: GPIO 'LED_PIN' uses pin 99, which is out of range.") {
		t.Errorf("hardware result = %+v", hardware)
	}

	run, err = history.GetRun(ctx, res.RunID.String())
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != stores.RunStatusRejected || run.ErrorCode == nil || *run.ErrorCode != engine.ErrCodeValidationFailed {
		t.Errorf("recorded run = %+v", run)
	}
}

func TestCompileRunLogging(t *testing.T) {
	var buf bytes.Buffer
	tel := telemetry.Nop()
	tel.Logger = telemetry.NewLoggerTo(&buf, telemetry.LoggingConfig{Level: "debug", Format: "json"})
	c, err := New(Options{Telemetry: tel, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		pin  string
		want []string
	}{
		{
			name: "succeeded",
			pin:  "5",
			want: []string{`"phase":"resolve"`, `"project":"blink"`, `"component":"compiler"`, "Compile finished in"},
		},
		{
			name: "rejected",
			pin:  "99",
			want: []string{`"phase":"validate"`, `"code":"VALIDATION_FAILED"`, "Phase failed", "Compile failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			res, _ := c.Compile(context.Background(), writeProject(t, strings.Replace(ledDoc, "%PIN%", tt.pin, 1), ""))
			out := buf.String()
			for _, want := range append(tt.want, `"run_id":"`+res.RunID.String()+`"`) {
				if !strings.Contains(out, want) {
					t.Errorf("log output missing %s:\n%s", want, out)
				}
			}
		})
	}
}

func TestCompileLocalScript(t *testing.T) {
	appScript := `blinks = 0

def setup():
    ctx.logger.info("local")

def forever():
    blinks += 1
    ctx.delay.delay_ms(100)
`
	c := newCompiler(t, nil)
	res, err := c.Compile(context.Background(), writeProject(t, strings.Replace(ledDoc, "%PIN%", "5", 1), appScript))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	rc := res.RenderContext
	if !strings.HasSuffix(res.ScriptSource, "app.star") {
		t.Errorf("ScriptSource = %q", res.ScriptSource)
	}
	if strings.Join(rc.SetupCode, "|") != `count = 0;|ctx.logger.info("local");` {
		t.Errorf("SetupCode = %q", rc.SetupCode)
	}
	wantLoop := "red_led.toggle();|blinks += 1;\n        ctx.delay.delay_ms(100);"
	if strings.Join(rc.LoopCode, "|") != wantLoop {
		t.Errorf("LoopCode = %q, want %q", strings.Join(rc.LoopCode, "|"), wantLoop)
	}
	if !contains(rc.Variables, "let mut blinks = 0;") {
		t.Errorf("Variables = %q", rc.Variables)
	}
}

func TestCompileExampleScript(t *testing.T) {
	doc := `
espforge:
  name: blink
  platform: esp32c3
example:
  name: blink
  props:
    blink_rate_ms: 250
`
	c := newCompiler(t, nil)
	res, err := c.Compile(context.Background(), writeProject(t, doc, ""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if res.ScriptSource != "example:blink" {
		t.Errorf("ScriptSource = %q", res.ScriptSource)
	}
	loop := strings.Join(res.RenderContext.LoopCode, "\n")
	if !strings.Contains(loop, "ctx.delay.delay_ms(250);") {
		t.Errorf("LoopCode = %q", loop)
	}
}

func TestCompileAsyncExample(t *testing.T) {
	doc := `
espforge:
  name: beat
  platform: esp32c3
  enable_async: true
example:
  name: heartbeat
`
	c := newCompiler(t, nil)
	res, err := c.Compile(context.Background(), writeProject(t, doc, ""))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	rc := res.RenderContext
	if len(rc.TaskDefinitions) != 1 || !strings.Contains(rc.TaskDefinitions[0], "async fn heartbeat(period_ms: i32)") {
		t.Errorf("TaskDefinitions = %q", rc.TaskDefinitions)
	}
	if len(rc.TaskSpawns) != 1 || rc.TaskSpawns[0] != "spawner.spawn(heartbeat(500)).unwrap();" {
		t.Errorf("TaskSpawns = %q", rc.TaskSpawns)
	}
	if !contains(rc.LoopCode, "Timer::after(Duration::from_millis(1000)).await;") {
		t.Errorf("LoopCode = %q", rc.LoopCode)
	}
	if len(rc.TaskDefinitions) == 1 {
		def := rc.TaskDefinitions[0]
		if !strings.Contains(def, "red_led.toggle();") ||
			!strings.Contains(def, "Timer::after(Duration::from_millis(period_ms)).await;") {
			t.Errorf("task body = %q", def)
		}
		if strings.Contains(def, "ctx.") {
			t.Errorf("task body should not reach ctx: %q", def)
		}
	}
}

func TestCompileBundledExamples(t *testing.T) {
	registry, err := examples.LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error = %v", err)
	}
	c := newCompiler(t, nil)
	for _, name := range registry.Names() {
		ex, _ := registry.Get(name)
		t.Run(name, func(t *testing.T) {
			doc := fmt.Sprintf("espforge:\n  name: %s\n  platform: esp32c3\n  enable_async: %t\nexample:\n  name: %s\n",
				name, ex.Async, name)
			res, err := c.Compile(context.Background(), writeProject(t, doc, ""))
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if res.ScriptSource != "example:"+name {
				t.Errorf("ScriptSource = %q", res.ScriptSource)
			}
			rc := res.RenderContext
			if len(rc.LoopCode) == 0 {
				t.Error("LoopCode is empty")
			}
			if ex.Async && len(rc.TaskSpawns) == 0 {
				t.Error("async example spawned no tasks")
			}
		})
	}
}

func TestCompileScenarios(t *testing.T) {
	ifDoc := strings.Replace(ledDoc, "  loop:\n    - $red_led.toggle: ~\n", `  loop:
    - if:
        condition:
          lhs: $count
          op: gt
          rhs: 10
        then:
          - $red_led.toggle: ~
          - set:
              variable: count
              value: 0
`, 1)

	tests := []struct {
		name     string
		doc      string
		script   string
		wantCode string
		check    func(t *testing.T, rc *engine.RenderContext)
	}{
		{
			name: "led on pin 5",
			doc:  strings.Replace(ledDoc, "%PIN%", "5", 1),
			check: func(t *testing.T, rc *engine.RenderContext) {
				if !contains(rc.Initializations, "let mut red_led = LED::new(5);") {
					t.Errorf("Initializations = %q", rc.Initializations)
				}
			},
		},
		{
			name:     "led on pin 99",
			doc:      strings.Replace(ledDoc, "%PIN%", "99", 1),
			wantCode: engine.ErrCodeValidationFailed,
		},
		{
			name: "set count to zero",
			doc:  strings.Replace(ledDoc, "%PIN%", "5", 1),
			check: func(t *testing.T, rc *engine.RenderContext) {
				if !contains(rc.Variables, "let mut count: i32 = 0;") {
					t.Errorf("Variables = %q", rc.Variables)
				}
				if !contains(rc.SetupCode, "count = 0;") {
					t.Errorf("SetupCode = %q", rc.SetupCode)
				}
			},
		},
		{
			name: "if with nested actions",
			doc:  strings.Replace(ifDoc, "%PIN%", "5", 1),
			check: func(t *testing.T, rc *engine.RenderContext) {
				loop := strings.Join(rc.LoopCode, "\n")
				if !strings.Contains(loop, "if count > 10 {") ||
					!strings.Contains(loop, "red_led.toggle();") ||
					!strings.Contains(loop, "count = 0;") {
					t.Errorf("LoopCode = %q", loop)
				}
			},
		},
		{
			name:     "task without async",
			doc:      strings.Replace(ledDoc, "%PIN%", "5", 1),
			script:   "# @task\ndef blinker():\n    toggle()\n",
			wantCode: engine.ErrCodeAsyncFeatureRequired,
		},
	}

	c := newCompiler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Compile(context.Background(), writeProject(t, tt.doc, tt.script))
			if tt.wantCode != "" {
				if !engine.HasCode(err, tt.wantCode) {
					t.Fatalf("Compile() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			tt.check(t, res.RenderContext)
		})
	}
}

func TestCompileTaskWithoutAsync(t *testing.T) {
	appScript := "# @task\ndef blinker():\n    toggle()\n"
	history := newHistory(t)
	c := newCompiler(t, history)

	res, err := c.Compile(context.Background(), writeProject(t, strings.Replace(ledDoc, "%PIN%", "5", 1), appScript))
	if !engine.HasCode(err, engine.ErrCodeAsyncFeatureRequired) {
		t.Fatalf("Compile() error = %v, want ASYNC_FEATURE_REQUIRED", err)
	}
	if !strings.Contains(err.Error(), "blinker") {
		t.Errorf("error %q should name the task", err)
	}
	if res.RenderContext != nil {
		t.Errorf("failed compile returned a render context: %+v", res.RenderContext)
	}

	run, err := history.GetRun(context.Background(), res.RunID.String())
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != stores.RunStatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
}

func TestCompileParseError(t *testing.T) {
	c := newCompiler(t, nil)
	res, err := c.Compile(context.Background(), writeProject(t, "espforge: [unclosed", ""))
	if !engine.HasCode(err, engine.ErrCodeParse) {
		t.Fatalf("Compile() error = %v, want PARSE_ERROR", err)
	}
	if len(res.Findings) != 0 {
		t.Errorf("parse failure should not run nibblers: %+v", res.Findings)
	}
}

func TestValidate(t *testing.T) {
	c := newCompiler(t, nil)
	ctx := context.Background()

	results, err := c.Validate(ctx, writeProject(t, strings.Replace(ledDoc, "%PIN%", "5", 1), ""))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !engine.GateOpen(results) {
		t.Errorf("gate closed: %+v", results)
	}

	results, err = c.Validate(ctx, writeProject(t, strings.Replace(ledDoc, "%PIN%", "99", 1), ""))
	if !engine.HasCode(err, engine.ErrCodeValidationFailed) {
		t.Fatalf("Validate() error = %v, want VALIDATION_FAILED", err)
	}
	if len(results) == 0 {
		t.Error("findings should accompany a closed gate")
	}
}

func TestMerge(t *testing.T) {
	rc := engine.NewRenderContext()
	rc.SetupCode = []string{"a();"}
	Merge(rc, &script.Output{
		Setup:           "b();",
		Variables:       []string{"let mut x = 1;"},
		TaskDefinitions: []string{"task"},
		TaskSpawns:      []string{"spawn"},
	})
	if strings.Join(rc.SetupCode, "|") != "a();|b();" {
		t.Errorf("SetupCode = %q", rc.SetupCode)
	}
	if len(rc.LoopCode) != 0 {
		t.Errorf("empty loop body should not be appended: %q", rc.LoopCode)
	}
	if len(rc.Variables) != 1 || len(rc.TaskDefinitions) != 1 || len(rc.TaskSpawns) != 1 {
		t.Errorf("Merge() = %+v", rc)
	}
}
