package command

// Line is one material line of a request body.
type Line struct {
	Material     string  `json:"material"`
	Offer        *string `json:"offer,omitempty"`
	Variation    *string `json:"variation,omitempty"`
	Modification *string `json:"modification,omitempty"`
	Total        int     `json:"total"`
	Storage      *string `json:"storage,omitempty"`
}

// Incoming receives goods. With StockID set it edits a purchase in place or
// confirms the arrival of a transfer.
type Incoming struct {
	StockID string  `json:"stock_id,omitempty"`
	Number  string  `json:"number,omitempty"`
	Comment *string `json:"comment,omitempty"`
	Lines   []Line  `json:"lines"`
}

type Purchase struct {
	StockID string  `json:"stock_id,omitempty"`
	Number  string  `json:"number,omitempty"`
	Comment *string `json:"comment,omitempty"`
	Lines   []Line  `json:"lines"`
}

type Package struct {
	Order   string  `json:"order"`
	Number  string  `json:"number,omitempty"`
	Comment *string `json:"comment,omitempty"`
	Lines   []Line  `json:"lines"`
}

type Transfer struct {
	Destination string  `json:"destination"`
	Order       *string `json:"order,omitempty"`
	Number      string  `json:"number,omitempty"`
	Comment     *string `json:"comment,omitempty"`
	Lines       []Line  `json:"lines"`
}

// Close covers both cancel and delete, which carry only a comment.
type Close struct {
	Comment *string `json:"comment,omitempty"`
}
