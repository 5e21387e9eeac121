package models

// TransactionRecord is a typed transaction row from an uploaded file
type TransactionRecord struct {
	Date        string  `json:"date,omitempty"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// TransactionsResponse is the backend typed-records response
type TransactionsResponse struct {
	Transactions []TransactionRecord `json:"transactions"`
}
