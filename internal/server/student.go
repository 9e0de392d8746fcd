package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	studentdomain "github.com/smallbiznis/schoolbilling/internal/student/domain"
)

type createStudentRequest struct {
	SchoolID  string `json:"school_id" binding:"required"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
}

type updateStudentRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
}

func (s *Server) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	schoolID, err := parseOptionalSnowflakeID(req.SchoolID)
	if err != nil || schoolID == nil {
		AbortWithError(c, invalidField("school_id", "school_id must be a valid id"))
		return
	}

	student, err := s.studentSvc.Create(c.Request.Context(), studentdomain.CreateRequest{
		SchoolID:  *schoolID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toStudentResponse(*student)})
}

func (s *Server) ListStudents(c *gin.Context) {
	page, err := parsePagination(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	schoolID, err := parseOptionalSnowflakeID(c.Query("school_id"))
	if err != nil {
		AbortWithError(c, invalidField("school_id", "school_id must be a valid id"))
		return
	}

	students, info, err := s.studentSvc.List(c.Request.Context(), studentdomain.ListRequest{
		Pagination: page,
		SchoolID:   schoolID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": mapList(students, toStudentResponse), "page_info": info})
}

func (s *Server) GetStudent(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	student, err := s.studentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toStudentResponse(*student)})
}

func (s *Server) UpdateStudent(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	student, err := s.studentSvc.Update(c.Request.Context(), id, studentdomain.UpdateRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toStudentResponse(*student)})
}

func (s *Server) DeleteStudent(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.studentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetStudentStatement(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	statement, err := s.statementSvc.StudentStatement(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toStudentStatementResponse(*statement)})
}

func (s *Server) GetStudentStatementPDF(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.statementSvc.StudentStatementPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="statement-%s.pdf"`, id.String()))
	c.Data(http.StatusOK, "application/pdf", doc)
}
