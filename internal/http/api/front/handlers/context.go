package handlers

import "github.com/gin-gonic/gin"

// getUserID reads the authenticated user ID set by the auth middleware.
func getUserID(c *gin.Context) uint64 {
	return c.GetUint64("userID")
}
