package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ProductID is the canonical text form of a record identifier.
// The snapshot file and the remote API disagree on whether ids are numbers or
// strings, so every id is normalized here before it is compared.
type ProductID string

// NormalizeID returns the canonical form of a raw identifier.
// Integral numbers ("42", "42.0", "0042") collapse to their decimal form.
func NormalizeID(raw string) ProductID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ProductID(strconv.FormatInt(n, 10))
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isIntegral(f) {
		return ProductID(strconv.FormatInt(int64(f), 10))
	}
	return ProductID(s)
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) < 1<<53
}

// Int returns the numeric value of an integer id.
func (id ProductID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (id ProductID) String() string {
	return string(id)
}

// Equal compares two ids after normalization.
func (id ProductID) Equal(other ProductID) bool {
	return NormalizeID(string(id)) == NormalizeID(string(other))
}

func (id ProductID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NormalizeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = NormalizeID(n.String())
	return nil
}

// Price decodes from a JSON number or a numeric string.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid price %s: %w", string(data), err)
	}
	*p = Price(f)
	return nil
}

func (p Price) Float64() float64 {
	return float64(p)
}

func (p Price) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// Category is the optional category reference embedded in a product
type Category struct {
	ID    ProductID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug,omitempty"`
	Image string    `json:"image,omitempty"`
}

// Product is a record as served by the snapshot file and the remote API
type Product struct {
	ID          ProductID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	Price       Price      `json:"price"`
	Description string     `json:"description"`
	Category    *Category  `json:"category,omitempty"`
	Images      []string   `json:"images"`
	CreationAt  *time.Time `json:"creationAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NotAvailable is displayed for missing optional fields.
const NotAvailable = "N/A"

// CategoryName returns the category display name or N/A.
func (p Product) CategoryName() string {
	if p.Category == nil || p.Category.Name == "" {
		return NotAvailable
	}
	return p.Category.Name
}

// Clone returns a deep copy of the product
func (p Product) Clone() Product {
	out := p
	if p.Category != nil {
		cat := *p.Category
		out.Category = &cat
	}
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.CreationAt != nil {
		t := *p.CreationAt
		out.CreationAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// CloneProducts deep-copies a product slice. A nil input yields an empty slice.
func CloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// ProductPayload is the body of PUT /products/{id} and POST /products/
type ProductPayload struct {
	Title       string   `json:"title" binding:"required"`
	Price       float64  `json:"price" binding:"gte=0"`
	Description string   `json:"description"`
	CategoryID  int64    `json:"categoryId" binding:"required,gt=0"`
	Images      []string `json:"images" binding:"required,min=1,dive,required"`
}

// EditForm mirrors the edit dialog: images are a single comma separated field
type EditForm struct {
	ID          ProductID `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	CategoryID  string    `json:"categoryId"`
	Images      string    `json:"images"`
}

// EditFormFrom pre-fills the edit form from a product
func EditFormFrom(p Product) EditForm {
	form := EditForm{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price.Float64(),
		Description: p.Description,
		Images:      strings.Join(p.Images, ", "),
	}
	if p.Category != nil {
		form.CategoryID = p.Category.ID.String()
	}
	return form
}

// Payload converts the form back into an API payload
func (f EditForm) Payload() (ProductPayload, error) {
	categoryID, err := strconv.ParseInt(strings.TrimSpace(f.CategoryID), 10, 64)
	if err != nil {
		return ProductPayload{}, fmt.Errorf("invalid category id %q: %w", f.CategoryID, err)
	}
	return ProductPayload{
		Title:       f.Title,
		Price:       f.Price,
		Description: f.Description,
		CategoryID:  categoryID,
		Images:      SplitImages(f.Images),
	}, nil
}

// SplitImages splits a comma separated list of image URLs, dropping blanks
func SplitImages(raw string) []string {
	parts := strings.Split(raw, ",")
	images := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			images = append(images, s)
		}
	}
	return images
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int   `json:"total"`
	TotalPages  int   `json:"totalPages"`
	From        int   `json:"from"`
	To          int   `json:"to"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
	Window      []int `json:"window"`
}

// SortState describes the active sort; an empty column means insertion order
type SortState struct {
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type ViewResponse struct {
	Success    bool              `json:"success"`
	Data       []Product         `json:"data"`
	Pagination *PaginationInfo   `json:"pagination"`
	Search     string            `json:"search"`
	Sort       SortState         `json:"sort"`
	Summary    string            `json:"summary"`
	Indicators map[string]string `json:"sortIndicators"`
	Changed    *bool             `json:"changed,omitempty"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type CategoryListResponse struct {
	Success bool       `json:"success"`
	Data    []Category `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
