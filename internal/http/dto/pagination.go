package dto

import "math"

const DefaultPageSize = 50

type Pagination struct {
	CurrentPage int  `json:"page"`
	TotalPages  int  `json:"total_pages"`
	TotalItems  int  `json:"total_items"`
	PageSize    int  `json:"page_size"`
	HasPrev     bool `json:"has_prev"`
	HasNext     bool `json:"has_next"`
}

func NewPagination(page, pageSize, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return &Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PageSize:    pageSize,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
}
