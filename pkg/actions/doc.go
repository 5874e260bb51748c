// Package actions compiles declarative app actions into target statements.
//
// An action is a single-key mapping inside app.setup or app.loop. The key
// selects a Strategy:
//
//	$red_led.toggle: ~            component method on an instance
//	logger.info: "hello"          global helper manifest
//	set: {variable: count, value: 0}
//	if: {condition: {lhs: $count, op: gt, rhs: 10}, then: [...]}
//
// A Registry holds strategies in a fixed order (component, global, set, if)
// and dispatches each key to the first strategy that claims it. Validation
// never produces code and treats unclaimed keys as warnings; rendering
// returns classified *engine.EngineError values.
package actions
