package handlers

// DefaultPageSize is the number of list entries shown per message.
const DefaultPageSize = 10

// Paginate returns the page-th window (1-based) of items, clamping page into
// range, with the clamped page and the page count. An empty list has one
// empty page.
func Paginate[T any](items []T, page, perPage int) ([]T, int, int) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	pages := (len(items) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, pages
}
