package source

import "strconv"

// priorityLevel maps syslog priorities 0-7 to levels, INFO when absent
func priorityLevel(priority string) string {
	p, err := strconv.Atoi(priority)
	if err != nil {
		return "INFO"
	}
	switch {
	case p <= 2:
		return "FATAL"
	case p == 3:
		return "ERROR"
	case p == 4:
		return "WARN"
	case p <= 6:
		return "INFO"
	default:
		return "DEBUG"
	}
}
