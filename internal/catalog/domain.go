package catalog

// Product is a catalog entry. Price is in minor currency units.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Type        string `json:"type"`
	Brand       string `json:"brand"`
	Stock       int    `json:"stock"`
}

// ListQuery narrows and pages ListProducts results.
type ListQuery struct {
	Search  string
	Brands  []string
	Types   []string
	OrderBy string // "price", "priceDesc" or "" for name
	Page    int
	Size    int
}

// Page carries paging metadata alongside one page of products.
type Page struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalCount int       `json:"totalCount"`
}
