package mail

import "time"

type SchoolRegisteredData struct {
	SchoolName string
	AdminName  string
	ExpiresIn  time.Duration
}

type CredentialsData struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type PasswordResetData struct {
	Name      string
	Link      string
	ExpiresIn time.Duration
}

type CredentialReviewedData struct {
	Name     string
	Title    string
	Approved bool
	Reason   string
}

type PaymentReceiptData struct {
	Name      string
	Reference string
	Type      string
	Amount    string
	Method    string
	Date      time.Time
}

type SubscriptionExpiredData struct {
	SchoolName string
	ExpiredAt  time.Time
}
