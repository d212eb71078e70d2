package models

// Customer is a bookkeeping client whose receipts are digitized here.
// DefaultVatPercent seeds ledger recalculation for the client's receipts.
type Customer struct {
	Id                uint    `json:"id" gorm:"primaryKey"`
	CompanyName       string  `json:"company_name" gorm:"not null;unique"`
	ContactName       string  `json:"contact_name"`
	Email             string  `json:"email" gorm:"unique;not null"`
	PhoneNumber       string  `json:"phone_number"`
	Address           string  `json:"address"`
	City              string  `json:"city"`
	Country           string  `json:"country"`
	Zip               string  `json:"zip"`
	UID               string  `json:"uid" gorm:"null"`
	DefaultVatPercent float64 `json:"default_vat_percent" gorm:"default:18"`
	Active            bool    `json:"-"`
}
