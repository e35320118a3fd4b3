package util

const DefaultPerPage = 10

func Calculate(currentPage, perPage int) (offset, limit int) {
	if currentPage < 1 {
		currentPage = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = DefaultPerPage
	}
	offset = (currentPage - 1) * perPage
	return offset, perPage
}
