package domain

// PaymentSettingsID is the fixed key of the singleton settings record.
const PaymentSettingsID = "payment_settings"

// PaymentSettings holds the payment-channel addresses shown to users
// when submitting a deposit. Stored as a single record.
type PaymentSettings struct {
	ID        string `json:"id"`
	Easypaisa string `json:"easypaisa"`
	Jazzcash  string `json:"jazzcash"`
	UPI       string `json:"upi"`
}

// DefaultPaymentSettings returns empty settings with the singleton ID.
func DefaultPaymentSettings() *PaymentSettings {
	return &PaymentSettings{ID: PaymentSettingsID}
}
