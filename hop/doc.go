// Package hop implements a small goto-driven scripting runtime. Source text
// is lexed into a flat token sequence which is executed directly: an
// instruction pointer walks the tokens and jumps to labels instead of using
// structured loops or conditionals.
//
// A program looks like:
//
//	@main
//	let integer n = 3
//	@loop
//	print n "\n"
//	n = sub n 1
//	is_equal n 0
//	goto_if done
//	goto loop
//	@done
//	exit
//
// Statements are one per line. `let <type> <name> = <value>` declares a
// variable (types: string, integer, float, bool, word), `del <name>` removes
// one, and `<name> = <value>` assigns. Any other line is a call: natives
// such as print, add or include run in the host, and a label name calls the
// label as a procedure until `return`. Comments use `//` and `/* */`.
//
// Errors are returned as *RuntimeError values carrying one of the Err*
// kinds; exit surfaces as *ExitError. Nothing in the package terminates the
// process.
package hop
