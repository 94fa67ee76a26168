package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/apierr"
)

// ErrorBody is the flat error envelope the web UI reads.
type ErrorBody struct {
	Error string `json:"error"`
}

func RespondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorBody{Error: msg})
}

// RespondAPIError picks the status from the first *apierr.Error in err.
func RespondAPIError(c *gin.Context, err error) {
	RespondError(c, apierr.StatusOf(err), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
