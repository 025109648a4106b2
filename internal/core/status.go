package core

// DeriveStatus returns COMPLETED when every approval slot holds a value and
// INPROGRESS otherwise. Which approver signed does not matter.
func DeriveStatus(approvals [4]string) Status {
	for _, a := range approvals {
		if a == "" {
			return StatusInProgress
		}
	}
	return StatusCompleted
}
