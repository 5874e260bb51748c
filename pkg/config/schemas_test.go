package config

import (
	"context"
	"strings"
	"testing"
)

func TestSchemaRegistry_RegisterAndGet(t *testing.T) {
	sr := NewSchemaRegistry()

	customSchema := `
#Board: {
	name:  string
	pins:  int & >0
}
`

	if err := sr.RegisterSchema("board", "#Board", customSchema); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	schema, ok := sr.GetSchema("board")
	if !ok {
		t.Fatal("expected to find board schema")
	}
	if schema.Err() != nil {
		t.Errorf("schema has errors: %v", schema.Err())
	}

	if err := sr.RegisterSchema("broken", "#Missing", customSchema); err == nil {
		t.Error("expected error for missing definition")
	}

	names := sr.ListSchemas()
	if len(names) != 2 || names[0] != "board" || names[1] != SchemaProject {
		t.Errorf("ListSchemas() = %v", names)
	}
}

func TestSchemaRegistry_ValidateProject(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       *ProjectConfig
		wantPaths []string
	}{
		{
			name: "minimal project",
			cfg: &ProjectConfig{
				Espforge: ProjectMeta{Name: "blink", Platform: PlatformESP32C3},
			},
		},
		{
			name: "full project",
			cfg: &ProjectConfig{
				Espforge: ProjectMeta{Name: "blink", Platform: PlatformESP32C3, EnableAsync: true},
				Hardware: &HardwareConfig{
					GPIO: map[string]GPIOConfig{"LED_PIN": {Pin: 5, Direction: "output"}},
					SPI: map[string]SPIConfig{"SPI_BUS": {
						SPI: 2, MISO: UnusedPin, MOSI: 7, SCK: 6, CS: 10, Frequency: DefaultSPIFrequency,
					}},
				},
				Components: map[string]Instance{
					"red_led": {Using: "led", With: map[string]interface{}{"gpio": "$LED_PIN"}},
				},
				App: &AppConfig{
					Variables: map[string]VariableDef{"count": {Type: "int", Initial: 0}},
					Setup:     []Action{{"set": map[string]interface{}{"variable": "count", "value": 0}}},
				},
			},
		},
		{
			name: "pin above byte range",
			cfg: &ProjectConfig{
				Espforge: ProjectMeta{Name: "blink", Platform: PlatformESP32C3},
				Hardware: &HardwareConfig{
					GPIO: map[string]GPIOConfig{"LED_PIN": {Pin: 300}},
				},
			},
			wantPaths: []string{"esp32.gpio.LED_PIN.pin"},
		},
		{
			name: "bad instance name",
			cfg: &ProjectConfig{
				Espforge: ProjectMeta{Name: "blink", Platform: PlatformESP32C3},
				Components: map[string]Instance{
					"red-led": {Using: "led"},
				},
			},
			wantPaths: []string{"components"},
		},
		{
			name: "spi mode out of range",
			cfg: &ProjectConfig{
				Espforge: ProjectMeta{Name: "blink", Platform: PlatformESP32S3},
				Hardware: &HardwareConfig{
					SPI: map[string]SPIConfig{"BUS": {MOSI: 1, SCK: 2, MISO: 3, CS: 4, Frequency: 1, Mode: 7}},
				},
			},
			wantPaths: []string{"mode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := sr.ValidateProject(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("ValidateProject() error = %v", err)
			}
			if len(tt.wantPaths) == 0 {
				if len(violations) != 0 {
					t.Errorf("unexpected violations: %v", violations)
				}
				return
			}
			if len(violations) == 0 {
				t.Fatalf("expected violations mentioning %v", tt.wantPaths)
			}
			joined := ""
			for _, v := range violations {
				joined += v.String() + "\n"
			}
			for _, p := range tt.wantPaths {
				if !strings.Contains(joined, strings.Split(p, ".")[len(strings.Split(p, "."))-1]) {
					t.Errorf("violations %q do not mention %s", joined, p)
				}
			}
		})
	}
}

func TestSchemaRegistry_UnknownSchema(t *testing.T) {
	sr := NewSchemaRegistry()
	if _, err := sr.Check(context.Background(), "nope", map[string]string{}); err == nil {
		t.Error("expected error for unknown schema")
	}
}
