package listing

import "github.com/hungpv1995/community-board/internal/models"

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// PageMeta describes one page of a derived list.
type PageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// Paginate returns the requested page of posts. Non-positive page and perPage
// values take the defaults and perPage is capped at MaxPerPage. A page past the
// end is empty.
func Paginate(posts []*models.Post, page, perPage int) ([]*models.Post, PageMeta) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total := len(posts)
	meta := PageMeta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   (total + perPage - 1) / perPage,
	}

	// compare before multiplying so a huge page cannot overflow
	if page-1 >= meta.Pages {
		return []*models.Post{}, meta
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return posts[start:end], meta
}
