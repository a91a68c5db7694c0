// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetStaffID gets the authenticated staff ID from context.
func GetStaffID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("staff_id")
	if !exists {
		return 0, false
	}

	id, ok := v.(int64)
	return id, ok
}

// MustGetStaffID gets the staff ID from context or panics.
func MustGetStaffID(c *gin.Context) int64 {
	id, exists := GetStaffID(c)
	if !exists {
		panic("staff_id not found in context")
	}
	return id
}

// GetStaffRole gets the staff role from context.
func GetStaffRole(c *gin.Context) string {
	v, exists := c.Get("staff_role")
	if !exists {
		return ""
	}

	role, ok := v.(string)
	if !ok {
		return ""
	}

	return role
}

// IsAdmin checks if the authenticated staff member is an admin.
func IsAdmin(c *gin.Context) bool {
	return GetStaffRole(c) == "admin"
}
