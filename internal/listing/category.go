// Package listing derives the visible post list from the full board
// collection by category, search term and sort order.
package listing

// AllCategories is the wildcard label. It disables category filtering and is
// never stored on a post.
const AllCategories = "전체"

var categories = []string{
	AllCategories,
	"동물/반려동물",
	"여행",
	"건강/헬스",
	"연예인",
}

// Categories returns the fixed category set, wildcard first.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// PostCategories returns the labels a post may be tagged with.
func PostCategories() []string {
	return Categories()[1:]
}

// IsCategory reports whether label belongs to the fixed set, wildcard included.
func IsCategory(label string) bool {
	for _, c := range categories {
		if c == label {
			return true
		}
	}
	return false
}

// IsPostCategory reports whether a post may be tagged with label.
func IsPostCategory(label string) bool {
	return label != AllCategories && IsCategory(label)
}

// CategoryFromQuery validates a category taken from a URL parameter and falls
// back to the wildcard when it is empty or unknown.
func CategoryFromQuery(value string) string {
	if IsCategory(value) {
		return value
	}
	return AllCategories
}
