package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	schooldomain "github.com/smallbiznis/schoolbilling/internal/school/domain"
)

type createSchoolRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Country  string `json:"country" binding:"required,len=2"`
	Currency string `json:"currency" binding:"required,len=3"`
}

type updateSchoolRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Country  *string `json:"country" binding:"omitempty,len=2"`
	Currency *string `json:"currency" binding:"omitempty,len=3"`
}

func (s *Server) CreateSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	school, err := s.schoolSvc.Create(c.Request.Context(), schooldomain.CreateRequest{
		Name:     req.Name,
		Country:  req.Country,
		Currency: req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toSchoolResponse(*school)})
}

func (s *Server) ListSchools(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	isActive, err := parseOptionalBool(c.Query("is_active"))
	if err != nil {
		AbortWithError(c, invalidField("is_active", "is_active must be true or false"))
		return
	}

	schools, info, err := s.schoolSvc.List(c.Request.Context(), schooldomain.ListRequest{
		Pagination: page,
		IsActive:   isActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapList(schools, toSchoolResponse), "page_info": info})
}

func (s *Server) GetSchool(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	school, err := s.schoolSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toSchoolResponse(*school)})
}

func (s *Server) UpdateSchool(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	school, err := s.schoolSvc.Update(c.Request.Context(), id, schooldomain.UpdateRequest{
		Name:     req.Name,
		Country:  req.Country,
		Currency: req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toSchoolResponse(*school)})
}

func (s *Server) DeleteSchool(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.schoolSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ActivateSchool(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	school, err := s.schoolSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toSchoolResponse(*school)})
}

func (s *Server) GetSchoolStatement(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	statement, err := s.statementSvc.SchoolStatement(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toSchoolStatementResponse(*statement)})
}
