package libapi

// Page is the identity record the platform returns for one page.
type Page struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Path  string   `json:"path"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
}

type subpagesResponse struct {
	Subpages []Page `json:"subpages"`
}

// Property is a named page property. Order is preserved as returned.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type propertiesResponse struct {
	Properties []Property `json:"properties"`
}
