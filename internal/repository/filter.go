package repository

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/d-karpukhin/event-board/internal/model"
)

// The search criteria are storage-agnostic; this file is the Postgres
// translation. Each absent filter is simply omitted from the conjunction.

const dialectPostgres = "postgres"

var eventColumns = []any{
	goqu.I("e.id"),
	goqu.I("e.title"),
	goqu.I("e.annotation"),
	goqu.I("e.description"),
	goqu.I("e.category_id"),
	goqu.I("e.initiator_id"),
	goqu.I("l.lat"),
	goqu.I("l.lon"),
	goqu.I("e.event_date"),
	goqu.I("e.state"),
	goqu.I("e.paid"),
	goqu.I("e.participant_limit"),
	goqu.I("e.request_moderation"),
	goqu.I("e.confirmed_requests"),
	goqu.I("e.created_on"),
	goqu.I("e.published_on"),
}

func eventDataset() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(goqu.T("events").As("e")).
		Join(goqu.T("locations").As("l"), goqu.On(goqu.I("e.location_id").Eq(goqu.I("l.id")))).
		Select(eventColumns...)
}

// buildPublicSearch translates the public criteria. The PUBLISHED restriction
// is always present; with no explicit range only future events are matched.
func buildPublicSearch(c model.PublicCriteria, page model.Page, now time.Time) (string, []any, error) {
	where := []exp.Expression{
		goqu.I("e.state").Eq(string(model.EventPublished)),
	}

	if c.Text != "" {
		pattern := "%" + c.Text + "%"
		where = append(where, goqu.Or(
			goqu.I("e.annotation").ILike(pattern),
			goqu.I("e.description").ILike(pattern),
		))
	}
	if len(c.CategoryIDs) > 0 {
		where = append(where, goqu.I("e.category_id").In(c.CategoryIDs))
	}
	if c.Paid != nil {
		where = append(where, goqu.I("e.paid").Eq(*c.Paid))
	}
	if c.OnlyAvailable {
		where = append(where, goqu.Or(
			goqu.I("e.confirmed_requests").Lt(goqu.I("e.participant_limit")),
			goqu.I("e.participant_limit").Eq(0),
		))
	}
	switch {
	case c.RangeStart != nil && c.RangeEnd != nil:
		where = append(where,
			goqu.I("e.event_date").Gte(*c.RangeStart),
			goqu.I("e.event_date").Lte(*c.RangeEnd),
		)
	case c.RangeStart != nil:
		where = append(where, goqu.I("e.event_date").Gte(*c.RangeStart))
	case c.RangeEnd != nil:
		where = append(where, goqu.I("e.event_date").Lte(*c.RangeEnd))
	default:
		where = append(where, goqu.I("e.event_date").Gt(now))
	}

	ds := eventDataset().Where(where...)

	// Event-date ordering is pushed down; the views ordering happens
	// in-process after enrichment, over this stable natural order.
	if c.Sort == model.SortByEventDate {
		ds = ds.Order(goqu.I("e.event_date").Asc())
	} else {
		ds = ds.Order(goqu.I("e.created_on").Asc())
	}

	return toPagedSQL(ds, page)
}

// buildAdminSearch translates the admin criteria: no implicit state filter,
// no default future-only restriction.
func buildAdminSearch(c model.AdminCriteria, page model.Page) (string, []any, error) {
	var where []exp.Expression

	if len(c.InitiatorIDs) > 0 {
		where = append(where, goqu.I("e.initiator_id").In(c.InitiatorIDs))
	}
	if len(c.States) > 0 {
		states := make([]string, len(c.States))
		for i, s := range c.States {
			states[i] = string(s)
		}
		where = append(where, goqu.I("e.state").In(states))
	}
	if len(c.CategoryIDs) > 0 {
		where = append(where, goqu.I("e.category_id").In(c.CategoryIDs))
	}
	if c.RangeStart != nil {
		where = append(where, goqu.I("e.event_date").Gte(*c.RangeStart))
	}
	if c.RangeEnd != nil {
		where = append(where, goqu.I("e.event_date").Lte(*c.RangeEnd))
	}

	ds := eventDataset().Order(goqu.I("e.created_on").Asc())
	if len(where) > 0 {
		ds = ds.Where(where...)
	}

	return toPagedSQL(ds, page)
}

func toPagedSQL(ds *goqu.SelectDataset, page model.Page) (string, []any, error) {
	sql, args, err := ds.
		Offset(uint(page.From)).
		Limit(uint(page.Size)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build search query: %w", err)
	}
	return sql, args, nil
}
