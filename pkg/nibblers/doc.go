// Package nibblers runs independent configuration checks before any code is
// generated.
//
// Each Nibbler inspects the same read-only project snapshot and reports
// findings with an ok, warning or error status. The Dispatcher sorts nibblers
// by priority (ties by name), runs all of them, and returns every result;
// engine.GateOpen decides whether generation may proceed.
//
// Built-in nibblers, in dispatch order:
//
//	project     0   project name charset
//	template    1   example selection and default props
//	schema      5   CUE schema unification
//	hardware   10   pin ceilings and bus summaries
//	policy     15   Rego pin policies
//	components 20   $ref targets of component and device parameters
//	app        30   setup and loop actions
package nibblers
