package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/storefront/internal/domain"
)

const anonymousAuthor = "Anonymous"

func (s *Server) ListReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	q := r.URL.Query()
	productID := q.Get("product_id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required", "")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, next, err := s.reviews.ListReviews(ctx, productID, limit, q.Get("cursor"))
	if errors.Is(err, ErrInvalidCursor) {
		writeError(w, http.StatusBadRequest, "invalid cursor", CodeInvalidCursor)
		return
	}
	if err != nil {
		internalError(ctx, w, "list reviews", err)
		return
	}

	page := domain.ReviewPage{Items: items}
	if next != "" {
		page.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var in domain.CreateReviewInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, "title, body and a rating between 1 and 5 are required", "")
		return
	}
	if _, err := s.catalog.Product(ctx, in.ProductID); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found", CodeProductNotFound)
			return
		}
		internalError(ctx, w, "get product", err)
		return
	}

	review := &domain.Review{
		ProductID:  in.ProductID,
		AuthorName: s.authorName(claimsFrom(ctx)),
		Rating:     in.Rating,
		Title:      in.Title,
		Body:       in.Body,
		Media:      in.Media,
		Moderation: domain.ModerationPending,
	}
	if s.autoApprove {
		review.Moderation = domain.ModerationApproved
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		internalError(ctx, w, "create review", err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) authorName(c *Claims) string {
	if c.Role != domain.RoleMember {
		return anonymousAuthor
	}
	m, ok := s.members.Get(c.Subject)
	if !ok {
		return anonymousAuthor
	}
	switch {
	case m.Nickname != "":
		return m.Nickname
	case m.FirstName != "":
		return strings.TrimSpace(m.FirstName + " " + m.LastName)
	default:
		return anonymousAuthor
	}
}
