// Package script transpiles app scripts into Rust statements.
//
// Scripts use Starlark syntax and are parsed with go.starlark.net/syntax;
// they are never executed. Top-level statements are handled in order:
//
//	count = 0              # state variable: let mut count = 0;
//
//	def setup():           # setup section, one indent level
//	    ctx.logger.info("hi")
//
//	def forever():         # main loop body, two indent levels
//	    count += 1
//	    ctx.delay.delay_ms(500)
//
//	# @task
//	def heartbeat(period_ms=250):
//	    ...                # embassy task plus a spawner.spawn statement
//
// A "# @disabled" comment above a statement, or trailing its first line,
// removes it. Functions named task_* are tasks without the marker. Tasks need
// async mode, which also rewrites every <recv>.delay_ms(n) call into an
// awaited embassy Timer.
//
// The transpiler emits space-separated tokens; FormatBody strips the outer
// braces, cleans the spacing, applies the delay rewrite and lays the
// statements out one per line.
package script
