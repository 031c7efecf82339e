package domain

// ListColors is the palette offered for new lists
var ListColors = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#eab308", // yellow
	"#22c55e", // green
	"#14b8a6", // teal
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#ec4899", // pink
}

// DefaultListColor picks a palette color from the number of existing lists
func DefaultListColor(existing int) string {
	if existing < 0 {
		existing = 0
	}
	return ListColors[existing%len(ListColors)]
}

// ValidColor reports whether c is a #rrggbb hex color
func ValidColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
