package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/schoolbilling/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := parseOptionalSnowflakeID(c.Query("target_id"))
	if err != nil {
		AbortWithError(c, invalidField("target_id", "target_id must be a valid id"))
		return
	}

	req := auditdomain.ListRequest{
		Pagination: page,
		TargetType: c.Query("target_type"),
		Action:     c.Query("action"),
	}
	if targetID != nil {
		req.TargetID = *targetID
	}

	logs, info, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lo.Map(logs, toAuditLogResponse), "page_info": info})
}
