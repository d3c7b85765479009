// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/climatehub/internal/app/store/audit"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
)

// listItem is one audit event as returned by the API.
type listItem struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Category     string            `json:"category"`
	EventType    string            `json:"eventType"`
	OperationID  string            `json:"opId,omitempty"`
	UserID       string            `json:"userId,omitempty"`
	UserName     string            `json:"userName,omitempty"` // resolved from UserID
	ActorID      string            `json:"actorId,omitempty"`
	ActorName    string            `json:"actorName,omitempty"` // resolved from ActorID
	InitiativeID string            `json:"initiativeId,omitempty"`
	Success      bool              `json:"success"`
	Failure      string            `json:"failureReason,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events     []listItem  `json:"events"`
	Pagination paging.Meta `json:"pagination"`
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	participationEvents := []string{
		audit.EventJoined,
		audit.EventLeft,
		audit.EventCompleted,
		audit.EventJoinCompensated,
		audit.EventCompensationFailed,
		audit.EventInitiativeOrganized,
		audit.EventInitiativeRetired,
	}

	adminEvents := []string{
		audit.EventUserRegistered,
		audit.EventArticleCreated,
		audit.EventArticleUpdated,
		audit.EventArticleDeleted,
	}

	maintenanceEvents := []string{
		audit.EventReconcileRepaired,
	}

	switch category {
	case audit.CategoryParticipation:
		return participationEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryMaintenance:
		return maintenanceEvents
	case "":
		all := make([]string, 0, len(participationEvents)+len(adminEvents)+len(maintenanceEvents))
		all = append(all, participationEvents...)
		all = append(all, adminEvents...)
		all = append(all, maintenanceEvents...)
		return all
	default:
		return nil
	}
}

func validEventType(category, eventType string) bool {
	for _, e := range eventTypesForCategory(category) {
		if e == eventType {
			return true
		}
	}
	return false
}
