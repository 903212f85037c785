package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobTaskAssigned:
		if _, ok := payload.(TaskAssignedPayload); !ok {
			if _, ok2 := payload.(*TaskAssignedPayload); !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}

	case JobSubmissionReceived:
		if _, ok := payload.(SubmissionReceivedPayload); !ok {
			if _, ok2 := payload.(*SubmissionReceivedPayload); !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}

	case JobLoginMagicLink:
		if _, ok := payload.(LoginMagicLinkPayload); !ok {
			if _, ok2 := payload.(*LoginMagicLinkPayload); !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals raw payload bytes into the correct typed payload struct.
func DecodePayload(t JobType, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobTaskAssigned:
		var p TaskAssignedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobSubmissionReceived:
		var p SubmissionReceivedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobLoginMagicLink:
		var p LoginMagicLinkPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
