package platform

// InstanceStatus is the externally observed status of the sandbox's instance.
// The empty value means no instance is visible yet.
type InstanceStatus string

const (
	StatusUnknown    InstanceStatus = ""
	StatusAllocating InstanceStatus = "ALLOCATING"
	StatusStarting   InstanceStatus = "STARTING"
	StatusHealthy    InstanceStatus = "HEALTHY"
	StatusUnhealthy  InstanceStatus = "UNHEALTHY"
	StatusStopping   InstanceStatus = "STOPPING"
	StatusStopped    InstanceStatus = "STOPPED"
	StatusError      InstanceStatus = "ERROR"
	StatusSleeping   InstanceStatus = "SLEEPING"
	StatusDeleting   InstanceStatus = "DELETING"
	StatusDeleted    InstanceStatus = "DELETED"
)

// Rank orders the provisioning progression: unknown < allocating < starting < healthy.
// Statuses outside the progression rank -1.
func (s InstanceStatus) Rank() int {
	switch s {
	case StatusUnknown:
		return 0
	case StatusAllocating:
		return 1
	case StatusStarting:
		return 2
	case StatusHealthy:
		return 3
	}
	return -1
}

// IsTerminal reports whether an instance in this status will never become ready.
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case StatusStopping, StatusStopped, StatusError, StatusDeleting, StatusDeleted:
		return true
	}
	return false
}

// AtLeast reports whether s has progressed to or past other.
func (s InstanceStatus) AtLeast(other InstanceStatus) bool {
	return s.Rank() >= other.Rank() && s.Rank() >= 0
}

func (s InstanceStatus) String() string {
	if s == StatusUnknown {
		return "UNKNOWN"
	}
	return string(s)
}
