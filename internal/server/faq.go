package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
)

type publishRequest struct {
	FAQs []faqdomain.QA `json:"faqs"`
}

type faqResponse struct {
	ProductID   string         `json:"product_id"`
	FAQs        []faqdomain.QA `json:"faqs"`
	IsPublished bool           `json:"is_published"`
	UpdatedAt   string         `json:"updated_at"`
}

func newFAQResponse(row *faqdomain.ProductFAQ) (faqResponse, error) {
	items, err := row.Items()
	if err != nil {
		return faqResponse{}, err
	}
	if items == nil {
		items = []faqdomain.QA{}
	}
	return faqResponse{
		ProductID:   row.ProductID,
		FAQs:        items,
		IsPublished: row.IsPublished,
		UpdatedAt:   row.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *Server) ListFAQs(c *gin.Context) {
	rows, err := s.faqSvc.List(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]faqResponse, 0, len(rows))
	for i := range rows {
		resp, err := newFAQResponse(&rows[i])
		if err != nil {
			AbortWithError(c, err)
			return
		}
		out = append(out, resp)
	}
	respondData(c, out)
}

func (s *Server) GetFAQs(c *gin.Context) {
	row, err := s.faqSvc.Get(c.Request.Context(), shopFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondFAQ(c, row)
}

// GenerateFAQs takes the product data in the body. The path id wins over any
// id in the body.
func (s *Server) GenerateFAQs(c *gin.Context) {
	var product faqdomain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be product JSON"))
		return
	}
	product.ID = strings.TrimSpace(c.Param("id"))
	if strings.TrimSpace(product.Title) == "" {
		AbortWithError(c, newValidationError("title", "required", "product title is required"))
		return
	}

	row, err := s.faqSvc.Generate(c.Request.Context(), shopFrom(c), product)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondFAQ(c, row)
}

func (s *Server) PublishFAQs(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be JSON"))
		return
	}

	row, err := s.faqSvc.Publish(c.Request.Context(), shopFrom(c), c.Param("id"), req.FAQs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondFAQ(c, row)
}

func (s *Server) UnpublishFAQs(c *gin.Context) {
	row, err := s.faqSvc.Unpublish(c.Request.Context(), shopFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondFAQ(c, row)
}

func (s *Server) DeleteFAQs(c *gin.Context) {
	if err := s.faqSvc.Delete(c.Request.Context(), shopFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"deleted": true})
}

func (s *Server) respondFAQ(c *gin.Context, row *faqdomain.ProductFAQ) {
	resp, err := newFAQResponse(row)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
