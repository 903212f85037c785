package jobs

type JobType string

const (
	JobTaskAssigned       JobType = "task.assigned"
	JobSubmissionReceived JobType = "submission.received"
	JobLoginMagicLink     JobType = "login.magiclink"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobTaskAssigned, JobSubmissionReceived, JobLoginMagicLink:
		return true
	default:
		return false
	}
}
