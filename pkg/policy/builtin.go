package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		pinConflictPolicy(),
		strappingPinPolicy(),
		pullResistorPolicy(),
	}
}

// pinConflictPolicy rejects a physical pin claimed by more than one entry.
func pinConflictPolicy() Policy {
	return Policy{
		Name:        "pin-conflicts",
		Description: "A physical pin may be assigned to one hardware entry only",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"pins"},
		Rego: `package espforge.policies.pins

import rego.v1

deny contains violation if {
	some pin in {p.pin | some p in input.pins}
	owners := sort([p.owner | some p in input.pins; p.pin == pin])
	count(owners) > 1
	violation := {
		"message": sprintf("Pin %d used by: %s", [pin, concat(", ", owners)]),
		"severity": "error",
		"resource": owners[0],
	}
}
`,
	}
}

// strappingPinPolicy warns about pins sampled at reset.
func strappingPinPolicy() Policy {
	return Policy{
		Name:        "strapping-pins",
		Description: "Strapping pins select the boot mode and should be used with care",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"pins", "boot"},
		Rego: `package espforge.policies.strapping

import rego.v1

deny contains violation if {
	some p in input.pins
	p.pin in input.strapping_pins
	violation := {
		"message": sprintf("%s uses strapping pin %d on %s; boot mode may be affected", [p.owner, p.pin, input.platform]),
		"severity": "warning",
		"resource": p.owner,
	}
}
`,
	}
}

// pullResistorPolicy warns when a pin enables both internal pulls.
func pullResistorPolicy() Policy {
	return Policy{
		Name:        "pull-resistors",
		Description: "A GPIO should not enable pull-up and pull-down at the same time",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"pins", "electrical"},
		Rego: `package espforge.policies.pulls

import rego.v1

deny contains violation if {
	some name, gpio in input.hardware.gpio
	gpio.pullup == true
	gpio.pulldown == true
	violation := {
		"message": sprintf("GPIO '%s' enables both pull-up and pull-down", [name]),
		"severity": "warning",
		"resource": sprintf("gpio.%s", [name]),
	}
}
`,
	}
}
