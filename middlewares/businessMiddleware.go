package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/gin-gonic/gin"
)

const BusinessIdHeader = "business_id"

// BusinessMiddleware scopes the request to the business named in the
// business_id header. Requests without one are rejected.
func BusinessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := strings.TrimSpace(c.GetHeader(BusinessIdHeader))
		if businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrorBusinessRequired.Error()})
			c.Abort()
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if userName := strings.TrimSpace(c.GetHeader("user_name")); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
