// Package examples embeds the bundled example projects.
//
// Each example is a directory holding an example.yaml (name, description,
// async flag, default props) and optionally an app.star script. The script
// is a template: {{ prop }} placeholders are filled from the defaults
// overridden by the project's example.props before the script bridge
// parses it.
package examples
