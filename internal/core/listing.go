package core

// TransactionDetails is a transaction joined with its category and the full
// set of its attachments, as produced by the listing query.
type TransactionDetails struct {
	Transaction
	CategoryName string
	CategoryType TransactionType
	Attachments  []Attachment
}

// TransactionPage is one page of a listing plus the unpaginated total.
type TransactionPage struct {
	Items  []TransactionDetails
	Total  int64
	Limit  int64
	Offset int64
}

// HasMore reports whether rows exist beyond this page.
func (p TransactionPage) HasMore() bool {
	return p.Offset+int64(len(p.Items)) < p.Total
}
