package valueobject

// IntroEligibilityStatus reports whether a user may get a trial or intro price
type IntroEligibilityStatus int

const (
	IntroEligibilityUnknown IntroEligibilityStatus = iota
	IntroEligibilityIneligible
	IntroEligibilityEligible
)

// String returns the constant name of the status
func (s IntroEligibilityStatus) String() string {
	switch s {
	case IntroEligibilityIneligible:
		return "INTRO_ELIGIBILITY_STATUS_INELIGIBLE"
	case IntroEligibilityEligible:
		return "INTRO_ELIGIBILITY_STATUS_ELIGIBLE"
	default:
		return "INTRO_ELIGIBILITY_STATUS_UNKNOWN"
	}
}

// IsEligible returns true only for a confirmed eligible status
func (s IntroEligibilityStatus) IsEligible() bool {
	return s == IntroEligibilityEligible
}
