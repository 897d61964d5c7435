package ratelimit

import "strconv"

// UserKey builds the limiter key for a user.
func UserKey(userID uint64) string {
	return "u:" + strconv.FormatUint(userID, 10)
}
