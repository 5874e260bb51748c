// Package policy evaluates Open Policy Agent (OPA) Rego policies against the
// hardware section of a project document.
//
// # Architecture
//
//  1. Engine - compiles Rego policies and evaluates their deny sets
//  2. Loader - reads extra policies from .rego and .json files
//  3. Types - policies, violations, results and the evaluation Input
//  4. Built-in policies - pin conflicts, strapping pins, pull resistors
//
// # Input
//
// BuildInput flattens the esp32: section into a list of pin claims so that
// policies can reason about physical pins without knowing every peripheral
// shape:
//
//	{
//	  "platform": "esp32c3",
//	  "strapping_pins": [2, 8, 9],
//	  "pins": [{"owner": "gpio.LED_PIN", "pin": 5}, {"owner": "spi.BUS.sck", "pin": 4}],
//	  "hardware": { ... the esp32: section ... }
//	}
//
// # Writing Policies
//
// A policy is a Rego module whose deny set holds strings or objects with
// message, severity and resource fields:
//
//	package board.status
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.hardware.gpio.STATUS.pin == 18
//	    violation := {
//	        "message": "STATUS must not use pin 18",
//	        "severity": "error",
//	        "resource": "gpio.STATUS",
//	    }
//	}
//
// Violations with severity "error" make the result not Allowed, which fails
// the compile gate.
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, policy.BuildInput(cfg))
package policy
