package session

import (
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/utils"
	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/validator"
)

// CompletionBlocker decides whether an assessment may be finalized,
// returning the sentinel explaining why completion is blocked or nil when
// the gate passes. The consultation question must be answered; details
// are optional but, when present alongside interest, must fall inside the
// 10-300 word band.
func CompletionBlocker(interest *bool, details string) error {
	if interest == nil {
		return ErrConsultationRequired
	}
	if !*interest {
		return nil
	}
	if details == "" {
		return nil
	}
	if !utils.WithinWordBand(details, validator.ConsultationMinWords, validator.ConsultationMaxWords) {
		return ErrConsultationDetails
	}
	return nil
}

// CanComplete reports whether the consultation answer satisfies the gate.
func CanComplete(interest *bool, details string) bool {
	return CompletionBlocker(interest, details) == nil
}
