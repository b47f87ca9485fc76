package controller

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// participant returns the caller's account, writing a 401 when the request
// carries no claims.
func participant(c *gin.Context) (model.Participant, *util.Claims, bool) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return model.Participant{}, nil, false
	}
	return claims.Participant(), claims, true
}

// studentID is the caller's student id; other callers get a 403.
func studentID(c *gin.Context) (uint, bool) {
	p, _, ok := participant(c)
	if !ok {
		return 0, false
	}
	if p.Kind != model.ParticipantStudent {
		util.Forbidden(c)
		return 0, false
	}
	return p.RefID, true
}

func queryBool(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "true" || v == "1"
}

// isAdmin reports whether the caller holds an admin role.
func isAdmin(c *gin.Context) bool {
	claims := util.GetUserFromContext(c)
	return claims != nil && claims.Role.IsAdmin()
}
