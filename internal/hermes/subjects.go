package hermes

const (
	SubjectTaskRequest  = "concord.task.request"
	SubjectTaskProgress = "concord.task.*.progress"
	SubjectTeamStats    = "concord.team.stats"
	SubjectTeamBalance  = "concord.team.balance"

	StreamName   = "CONCORD_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// Task lifecycle subjects
func SubjectTaskCreated(taskID string) string       { return "concord.task." + taskID + ".created" }
func SubjectTaskAssigned(taskID string) string      { return "concord.task." + taskID + ".assigned" }
func SubjectTaskUnmatched(taskID string) string     { return "concord.task." + taskID + ".unmatched" }
func SubjectTaskStatusChanged(taskID string) string { return "concord.task." + taskID + ".status" }

// Member subjects
func SubjectMemberRegistered(memberID string) string { return "concord.member." + memberID + ".registered" }
func SubjectMemberUpdated(memberID string) string    { return "concord.member." + memberID + ".updated" }
func SubjectMemberDrained(memberID string) string    { return "concord.member." + memberID + ".drained" }

// TaskIDFromSubject extracts the task id from a concord.task.<id>.<event> subject.
func TaskIDFromSubject(subject string) string {
	const prefix = "concord.task."
	if len(subject) <= len(prefix) || subject[:len(prefix)] != prefix {
		return ""
	}
	rest := subject[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '.' {
			return rest[:i]
		}
	}
	return ""
}
