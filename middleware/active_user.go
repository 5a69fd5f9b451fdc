package middleware

import (
	"net/http"

	"ledger/database"
	"ledger/models"

	"github.com/gin-gonic/gin"
)

// RequireActiveUser 校验 token 对应的用户仍然存在且已完成邮箱验证
// 需在 JWTAuth 之后使用
func RequireActiveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetCurrentUserID(c)
		if userID == 0 {
			abortUnauthorized(c, "请先登录")
			return
		}

		var user models.User
		if err := database.DB.Select("id", "status").First(&user, userID).Error; err != nil {
			abortUnauthorized(c, "用户不存在")
			return
		}
		if !user.IsActive() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    http.StatusForbidden,
				"message": "账号尚未完成邮箱验证",
			})
			return
		}
		c.Next()
	}
}
