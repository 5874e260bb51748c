// Package config loads and validates espforge project documents.
//
// # Overview
//
// A project document is a YAML file with up to six top-level sections:
//
//	espforge:          # project metadata (name, platform, enable_async)
//	  name: blink
//	  platform: esp32c3
//	example:           # optional bundled example
//	  name: blink
//	esp32:             # hardware namespace for $name references
//	  gpio:
//	    LED_PIN: {pin: 5, direction: output}
//	components:        # logical components built from hardware
//	  red_led: {using: led, with: {gpio: $LED_PIN}}
//	devices:           # drivers built from components
//	app:               # variables plus setup/loop action lists
//
// # Components
//
// Loader decodes a document with yaml.v3, applies electrical defaults (SPI
// MISO/CS unused, bus frequencies, UART baud) and validates struct tags with
// validator/v10. Failures are *engine.EngineError values with code
// PARSE_ERROR.
//
// SchemaRegistry holds CUE schemas. The built-in "project" schema is used by
// the schema nibbler to report every constraint violation at once.
//
// The platform table maps each supported chip to its GPIO ceiling and
// strapping pins; the hardware nibbler and the pin policies read it.
//
// # Usage Example
//
//	loader := config.NewLoader()
//	cfg, err := loader.LoadFile(ctx, "espforge.yaml")
//	if err != nil {
//	    return err
//	}
//
//	violations, err := config.NewSchemaRegistry().ValidateProject(ctx, cfg)
package config
