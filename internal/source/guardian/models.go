package guardian

// SearchResponse is the envelope of the content search endpoint.
type SearchResponse struct {
	Response struct {
		Status      string    `json:"status"`
		Message     string    `json:"message"`
		Total       int       `json:"total"`
		CurrentPage int       `json:"currentPage"`
		Pages       int       `json:"pages"`
		Results     []Article `json:"results"`
	} `json:"response"`
}

type Article struct {
	ID                 string  `json:"id"`
	Type               string  `json:"type"`
	SectionID          string  `json:"sectionId"`
	SectionName        string  `json:"sectionName"`
	WebPublicationDate string  `json:"webPublicationDate"`
	WebTitle           string  `json:"webTitle"`
	WebURL             string  `json:"webUrl"`
	APIURL             string  `json:"apiUrl"`
	Fields             *Fields `json:"fields"`
}

type Fields struct {
	Headline   string `json:"headline"`
	TrailText  string `json:"trailText"`
	Byline     string `json:"byline"`
	Standfirst string `json:"standfirst"`
}
