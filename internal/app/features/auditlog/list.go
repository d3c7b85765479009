// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/store/audit"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /api/admin/audit. Filters: category, eventType,
// userId, initiativeId, startDate, endDate (YYYY-MM-DD, inclusive), plus
// page and limit. Events are newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, "audit list", err)
		return
	}
	pg := paging.Parse(r)
	filter.Limit = pg.Limit64()
	filter.Offset = pg.Skip()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, "audit list", err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, "audit count", err)
		return
	}

	// Collect unique user IDs for name resolution
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.UserID, e.ActorID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}
	names, err := h.Users.NamesByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		names = nil
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e, names))
	}

	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, listResponse{Events: items, Pagination: pg.Meta(total)})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("eventType")),
	}

	if f.Category != "" && eventTypesForCategory(f.Category) == nil {
		return f, apperr.Validation("Unknown category")
	}
	if f.EventType != "" && !validEventType(f.Category, f.EventType) {
		return f, apperr.Validation("Unknown event type")
	}

	var err error
	if f.UserID, err = optionalID(q.Get("userId"), "userId"); err != nil {
		return f, err
	}
	if f.InitiativeID, err = optionalID(q.Get("initiativeId"), "initiativeId"); err != nil {
		return f, err
	}

	if s := strings.TrimSpace(q.Get("startDate")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Validation("startDate must be YYYY-MM-DD")
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("endDate")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Validation("endDate must be YYYY-MM-DD")
		}
		// End of day
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return f, apperr.Validation("endDate is before startDate")
	}
	return f, nil
}

func optionalID(s, field string) (*primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, apperr.Validation(field + " is not a valid id")
	}
	return &id, nil
}

func toItem(e audit.Event, names map[primitive.ObjectID]string) listItem {
	it := listItem{
		ID:          e.ID.Hex(),
		Timestamp:   e.Timestamp,
		Category:    e.Category,
		EventType:   e.EventType,
		OperationID: e.OperationID,
		Success:     e.Success,
		Failure:     e.FailureReason,
		Details:     e.Details,
	}
	if e.UserID != nil {
		it.UserID = e.UserID.Hex()
		it.UserName = names[*e.UserID]
	}
	if e.ActorID != nil {
		it.ActorID = e.ActorID.Hex()
		it.ActorName = names[*e.ActorID]
	}
	if e.InitiativeID != nil {
		it.InitiativeID = e.InitiativeID.Hex()
	}
	return it
}
