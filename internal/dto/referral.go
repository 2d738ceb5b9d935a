package dto

// ReferralCodeResponse carries the user's shareable code
type ReferralCodeResponse struct {
	Code string `json:"code"`
}

// ReferralEligibilityResponse tells whether the user can still claim
type ReferralEligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// ClaimReferralRequest claims another user's referral code
type ClaimReferralRequest struct {
	Code string `json:"code" validate:"required,alphanum,len=6"`
}
