package action

import "strings"

// ParseVK converts a key token (e.g. "Z", "F3", "5") into a Windows
// virtual-key code. Recognizes F1..F12, letters A..Z and digits 0..9.
// Unknown tokens fall back to VK 'Z', the usual sprint binding.
func ParseVK(key string) byte {
	k := strings.ToUpper(strings.TrimSpace(key))
	if len(k) == 2 && k[0] == 'F' { // F1-F9
		n := int(k[1] - '0')
		if n >= 1 && n <= 9 {
			return byte(0x70 + (n - 1)) // VK_F1=0x70
		}
	}
	if len(k) == 3 && k[0] == 'F' { // F10-F12
		switch k {
		case "F10":
			return 0x79
		case "F11":
			return 0x7A
		case "F12":
			return 0x7B
		}
	}
	if len(k) == 1 && ((k[0] >= 'A' && k[0] <= 'Z') || (k[0] >= '0' && k[0] <= '9')) {
		return k[0] // letters and digits match VK codes
	}
	return 'Z'
}
