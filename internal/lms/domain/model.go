package domain

// SyncRequest carries everything the LMS needs to create an enrollment.
// It is intentionally self-contained so a queued copy can be replayed
// later without reloading marketplace state.
type SyncRequest struct {
	EnrollmentID       string  `json:"enrollment_id"`
	UserEmail          string  `json:"user_email"`
	UserName           string  `json:"user_name"`
	CourseID           string  `json:"course_id"`
	PaymentID          string  `json:"payment_id"`
	AmountCents        int64   `json:"amount_cents"`
	Currency           string  `json:"currency"`
	ReferralCode       string  `json:"referral_code,omitempty"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	GrantID            string  `json:"grant_id,omitempty"`
}

// SyncResult is the LMS acknowledgement of a created enrollment.
type SyncResult struct {
	EnrollmentID string `json:"enrollment_id"`
}
