package nytimes

// SearchResponse is the article search envelope. Fault is set by the API
// gateway for key and quota errors.
type SearchResponse struct {
	Status    string `json:"status"`
	Copyright string `json:"copyright"`
	Message   string `json:"message"`
	Fault     *Fault `json:"fault"`
	Response  struct {
		Docs []Article `json:"docs"`
		Meta struct {
			Hits   int `json:"hits"`
			Offset int `json:"offset"`
		} `json:"meta"`
	} `json:"response"`
}

type Fault struct {
	FaultString string `json:"faultstring"`
	Detail      struct {
		ErrorCode string `json:"errorcode"`
	} `json:"detail"`
}

type Article struct {
	ID            string   `json:"_id"`
	WebURL        string   `json:"web_url"`
	Abstract      string   `json:"abstract"`
	LeadParagraph string   `json:"lead_paragraph"`
	Snippet       string   `json:"snippet"`
	Headline      Headline `json:"headline"`
	PubDate       string   `json:"pub_date"`
	SectionName   string   `json:"section_name"`
	Byline        Byline   `json:"byline"`
}

type Headline struct {
	Main string `json:"main"`
}

type Byline struct {
	Original string   `json:"original"`
	Person   []Person `json:"person"`
}

type Person struct {
	Firstname  string `json:"firstname"`
	Middlename string `json:"middlename"`
	Lastname   string `json:"lastname"`
	Role       string `json:"role"`
}
