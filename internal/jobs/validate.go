package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobTaskAssigned:
		var p TaskAssignedPayload
		switch v := payload.(type) {
		case TaskAssignedPayload:
			p = v
		case *TaskAssignedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.AssignmentID) == "" || trim(p.Email) == "" || trim(p.TaskTitle) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobSubmissionReceived:
		var p SubmissionReceivedPayload
		switch v := payload.(type) {
		case SubmissionReceivedPayload:
			p = v
		case *SubmissionReceivedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.AssignmentID) == "" || trim(p.Email) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobLoginMagicLink:
		var p LoginMagicLinkPayload
		switch v := payload.(type) {
		case LoginMagicLinkPayload:
			p = v
		case *LoginMagicLinkPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.Email) == "" || trim(p.VerifyURL) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
