package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorBad    = 167 // red
)

var noColor bool

// Init applies terminal detection once at CLI startup.
func Init() {
	noColor = !ShouldUseColor()
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return render(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return render(colorMuted, s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return render(colorCmd, s)
}

// RenderStatus colors a health status: green for ok, red otherwise.
func RenderStatus(s string) string {
	if s == "ok" {
		return render(colorOK, s)
	}
	return render(colorBad, s)
}
