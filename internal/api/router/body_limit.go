package router

import "strconv"

// bodyLimit renders a byte count in the format accepted by echo's BodyLimit middleware.
func bodyLimit(n int64) string {
	if n <= 0 {
		n = 5 << 20 //nolint:mnd
	}

	return strconv.FormatInt(n, 10) + "B"
}
