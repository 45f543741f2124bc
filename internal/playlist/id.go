package playlist

import "strconv"

// ChannelID derives a stable identifier from a channel's display name and
// stream URL: the lowercased name with every character outside [a-z0-9]
// replaced by '-', joined with a short base-36 hash of the URL. The hash is a
// weak rolling hash kept for id stability with existing favorite stores, not
// for collision resistance.
func ChannelID(name, url string) string {
	clean := make([]byte, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			clean = append(clean, byte(r))
		case r >= 'A' && r <= 'Z':
			clean = append(clean, byte(r-'A'+'a'))
		default:
			clean = append(clean, '-')
		}
	}
	return string(clean) + "-" + shortHash(url)
}

// shortHash is the classic djb-style rolling hash on 32-bit integers,
// rendered base 36.
func shortHash(s string) string {
	var h int32
	for _, r := range s {
		h = h<<5 - h + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
