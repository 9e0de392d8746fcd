package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/schoolbilling/internal/settlement"
	"github.com/smallbiznis/schoolbilling/pkg/db/pagination"
)

const dateOnlyLayout = "2006-01-02"

// parsePathID reads a snowflake id from the named path parameter.
func parsePathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func parseOptionalBool(value string) (*bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return nil, ErrInvalidID
	}
	return &id, nil
}

func parseOptionalStatus(value string) (*settlement.Status, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	status, err := settlement.ParseStatus(value)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateOnlyLayout, strings.TrimSpace(value), time.UTC)
}

// parsePagination reads limit and offset; clamping is left to the services.
func parsePagination(c *gin.Context) (pagination.Pagination, error) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		return pagination.Pagination{}, invalidField("limit", "limit must be an integer")
	}
	offset, err := parseOptionalInt(c.Query("offset"))
	if err != nil {
		return pagination.Pagination{}, invalidField("offset", "offset must be an integer")
	}
	if offset < 0 {
		return pagination.Pagination{}, invalidField("offset", "offset must be zero or greater")
	}
	return pagination.Pagination{Limit: limit, Offset: offset}, nil
}
