package jobs

import (
	"testing"
	"time"
)

func TestEncodeDecode_TaskAssigned(t *testing.T) {
	payload := TaskAssignedPayload{
		AssignmentID: "assignment-123",
		TaskID:       "task-456",
		Email:        "writer@example.com",
		Name:         "Writer",
		TaskTitle:    "Essay on Go",
		Deadline:     time.Now().UTC().Add(6 * time.Hour),
	}

	b, err := EncodePayload(JobTaskAssigned, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	decoded, err := DecodePayload(JobTaskAssigned, b)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(TaskAssignedPayload)
	if !ok {
		t.Fatalf("expected TaskAssignedPayload, got %T", decoded)
	}

	if p.AssignmentID != payload.AssignmentID {
		t.Fatalf("expected assignmentId %s, got %s", payload.AssignmentID, p.AssignmentID)
	}
	if p.Email != payload.Email {
		t.Fatalf("expected email %s, got %s", payload.Email, p.Email)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobTaskAssigned, LoginMagicLinkPayload{
		Email:     "writer@example.com",
		VerifyURL: "https://example.com/verify?token=x",
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err != ErrPayloadTypeMismatch {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayload_UnknownType(t *testing.T) {
	_, err := EncodePayload(JobType("nonsense"), TaskAssignedPayload{})
	if err != ErrInvalidJobType {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestValidatePayload_RequiredFields(t *testing.T) {
	err := ValidatePayload(JobTaskAssigned, TaskAssignedPayload{AssignmentID: ""})
	if err == nil {
		t.Fatalf("expected error")
	}

	err = ValidatePayload(JobLoginMagicLink, LoginMagicLinkPayload{Email: "a@b.c", VerifyURL: ""})
	if err == nil {
		t.Fatalf("expected error for missing verify url")
	}
}

func TestDecodePayload_Empty(t *testing.T) {
	_, err := DecodePayload(JobSubmissionReceived, nil)
	if err != ErrInvalidJobPayload {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}
