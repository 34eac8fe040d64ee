//go:build windows

package opener

// The empty argument is the window title consumed by start.
func defaultCommand() []string { return []string{"cmd", "/c", "start", ""} }
