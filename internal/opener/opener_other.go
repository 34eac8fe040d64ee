//go:build !darwin && !windows

package opener

func defaultCommand() []string { return []string{"xdg-open"} }
