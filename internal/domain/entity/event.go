package entity

// ReportReadyEvent is the completion notification published once a cost
// report has been uploaded. This schema is a published contract: new fields
// may only ever be added as optional, and existing fields are never removed,
// renamed, or retyped.
type ReportReadyEvent struct {
	LeaseID      string  `json:"leaseId" validate:"required,uuid4"`
	UserEmail    string  `json:"userEmail" validate:"required,max=254"`
	AccountID    string  `json:"accountId" validate:"required,len=12,number"`
	TotalCost    float64 `json:"totalCost" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"required,eq=USD"`
	StartDate    string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	CSVURL       string  `json:"csvUrl" validate:"required,url,max=2048"`
	URLExpiresAt string  `json:"urlExpiresAt" validate:"required"`
}

// CurrencyUSD is the fixed report currency; Cost Explorer reports unblended
// costs in USD.
const CurrencyUSD = "USD"

// Validate checks the event against its published schema before emission.
func (e ReportReadyEvent) Validate() error {
	if verrs := structErrors(e); len(verrs) > 0 {
		return verrs
	}
	return nil
}
