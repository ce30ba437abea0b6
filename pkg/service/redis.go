package service

import (
	"fmt"
	"time"
)

const (
	// keyPrefix namespaces every key the service writes.
	keyPrefix = "casino_retention:"

	fieldExcluded        = "excluded"
	fieldJurisdiction    = "jurisdiction"
	fieldCoolingOffUntil = "cooling_off_until"
	fieldLastApprovedAt  = "last_approved_at"
)

func complianceKey(actorID int) string {
	return fmt.Sprintf("%scompliance:%d", keyPrefix, actorID)
}

func approvalsKey(actorID int) string {
	return fmt.Sprintf("%scompliance:%d:approvals", keyPrefix, actorID)
}

func windowKey(actorID int) string {
	return fmt.Sprintf("%swindow:%d", keyPrefix, actorID)
}

// monthlyField and dailyField bucket totals by the UTC calendar.
func monthlyField(at time.Time) string {
	return "monthly:" + at.UTC().Format("2006-01")
}

func dailyField(at time.Time) string {
	return "daily:" + at.UTC().Format("2006-01-02")
}
