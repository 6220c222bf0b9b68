package entity

// Lease holds the details returned by the leases service for one sandbox
// lease. Unknown fields in the response are tolerated and dropped, keeping
// the contract forward-compatible.
type Lease struct {
	StartDate      string `json:"startDate"`
	ExpirationDate string `json:"expirationDate"`
	AWSAccountID   string `json:"awsAccountId"`
	Status         string `json:"status"`
}
