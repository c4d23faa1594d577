package server

// HTTPError is the unified error payload.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest is the signup payload.
type AuthSignupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// AuthLoginRequest is the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a signed JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// ResearchRequest is the research run payload.
type ResearchRequest struct {
	Topic   string   `json:"topic"`
	Enrich  *bool    `json:"enrich,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// QuotaResponse reports the caller's monthly allotment.
type QuotaResponse struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// QuotaExceededResponse is the structured rejection payload for an
// exhausted allotment. Clients read the numbers, not the message.
type QuotaExceededResponse struct {
	Error string `json:"error"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

// ReferralRedeemRequest redeems a referral code for bonus quota.
type ReferralRedeemRequest struct {
	Code string `json:"code"`
}

// TopicCreateRequest registers a tracked topic.
type TopicCreateRequest struct {
	Query        string `json:"query"`
	ScheduleCron string `json:"schedule_cron"`
	Enrich       bool   `json:"enrich"`
}
