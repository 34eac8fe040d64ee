//go:build darwin

package opener

func defaultCommand() []string { return []string{"open"} }
