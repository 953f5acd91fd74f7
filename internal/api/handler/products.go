package handler

// product is a public product page and the guarded page its "Apply now"
// action leads to.
type product struct {
	Slug  string
	Title string
	Page  string
}

var catalog = map[string]product{
	"credit-cards": {Slug: "credit-cards", Title: "Credit cards", Page: "/credit-cards"},
	"loans":        {Slug: "loans", Title: "Personal loans", Page: "/loans"},
	"insurance":    {Slug: "insurance", Title: "Insurance", Page: "/insurance"},
}

func lookupProduct(slug string) (product, bool) {
	p, ok := catalog[slug]
	return p, ok
}
