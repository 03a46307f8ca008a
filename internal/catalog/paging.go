package catalog

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 20
	MaxPageSize       = 100

	// exportPageSize asks the list endpoint for everything in one call.
	exportPageSize = 100000

	// maxOffset is well past the end of the catalog; deeper pages are empty anyway.
	maxOffset = exportPageSize
)

// Offset is the list offset of the first item on pageNumber.
func Offset(pageNumber, pageSize int) int {
	return (pageNumber - 1) * pageSize
}

// TotalPages is ceil(totalCount/pageSize).
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// normalizePaging applies defaults, caps pageSize at MaxPageSize and clamps
// pageNumber so Offset stays within maxOffset.
func normalizePaging(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = DefaultPageNumber
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)
	pageNumber = min(pageNumber, maxOffset/pageSize+1)
	return pageNumber, pageSize
}
