// Package report aggregates occupancy and opportunity loss per property.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/suteetoe/leasedesk/internal/apperror"
	"github.com/suteetoe/leasedesk/internal/model"
	"github.com/suteetoe/leasedesk/prometheus"

	"gorm.io/gorm"
)

// Occupancy summarises the current unit statuses of one property
type Occupancy struct {
	PropertyID      uint    `json:"property_id"`
	PropertyName    string  `json:"property_name"`
	TotalUnits      int64   `json:"total_units"`
	Occupied        int64   `json:"occupied"`
	Vacant          int64   `json:"vacant"`
	Maintenance     int64   `json:"maintenance"`
	Reserved        int64   `json:"reserved"`
	OccupancyRate   float64 `json:"occupancy_rate"`
	PotentialRent   float64 `json:"potential_rent"`
	OpportunityLoss float64 `json:"opportunity_loss"`
}

// Loss is the rent a property did not collect over a period because its
// units were not under lease
type Loss struct {
	PropertyID   uint    `json:"property_id"`
	PropertyName string  `json:"property_name"`
	UnitDays     int     `json:"unit_days"`
	VacantDays   int     `json:"vacant_days"`
	Loss         float64 `json:"loss"`
}

type Reporter struct {
	db *gorm.DB
}

func NewReporter(db *gorm.DB) *Reporter {
	return &Reporter{db: db}
}

// Occupancy reports every property, including ones without units, by name
func (r *Reporter) Occupancy(ctx context.Context) ([]Occupancy, error) {
	defer prometheus.TrackDBOperation("report")(time.Now())

	var rows []Occupancy
	err := r.db.WithContext(ctx).
		Table("properties").
		Select(`properties.id AS property_id,
			properties.name AS property_name,
			COUNT(units.id) AS total_units,
			COALESCE(SUM(CASE WHEN units.status = ? THEN 1 ELSE 0 END), 0) AS occupied,
			COALESCE(SUM(CASE WHEN units.status = ? THEN 1 ELSE 0 END), 0) AS vacant,
			COALESCE(SUM(CASE WHEN units.status = ? THEN 1 ELSE 0 END), 0) AS maintenance,
			COALESCE(SUM(CASE WHEN units.status = ? THEN 1 ELSE 0 END), 0) AS reserved,
			COALESCE(SUM(units.total_rent), 0) AS potential_rent,
			COALESCE(SUM(CASE WHEN units.status <> ? THEN units.total_rent ELSE 0 END), 0) AS opportunity_loss`,
			model.UnitOccupied, model.UnitVacant, model.UnitMaintenance, model.UnitReserved, model.UnitOccupied).
		Joins("LEFT JOIN units ON units.property_id = properties.id").
		Group("properties.id, properties.name").
		Order("properties.name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternal, "failed to build occupancy report", err)
	}

	for i := range rows {
		if rows[i].TotalUnits > 0 {
			rows[i].OccupancyRate = float64(rows[i].Occupied) / float64(rows[i].TotalUnits)
		}
	}
	return rows, nil
}

type span struct{ from, to time.Time }

// OpportunityLoss reports, per property, the days in [from, to] each unit
// was not covered by a lease that took effect and the rent lost on those
// days. Monthly rent is spread over the year at 12/365 per day. PENDING
// leases never cover a unit; a terminated lease stops covering on its
// termination date.
func (r *Reporter) OpportunityLoss(ctx context.Context, from, to time.Time) ([]Loss, error) {
	from, to = day(from), day(to)
	if to.Before(from) {
		return nil, apperror.Validation("to must not be before from")
	}
	defer prometheus.TrackDBOperation("report")(time.Now())
	db := r.db.WithContext(ctx)

	var units []model.Unit
	if err := db.Preload("Property").Order("id asc").Find(&units).Error; err != nil {
		return nil, apperror.Internal(apperror.CodeInternal, "failed to build opportunity loss report", err)
	}

	var leases []model.Lease
	err := db.Preload("LeaseUnits").
		Where("status IN ? AND start_date <= ? AND end_date >= ?",
			[]model.LeaseStatus{model.LeaseActive, model.LeaseTerminated, model.LeaseExpired}, to, from).
		Find(&leases).Error
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternal, "failed to build opportunity loss report", err)
	}

	coverage := make(map[uint][]span)
	for _, l := range leases {
		end := l.EndDate
		if l.TerminationDate != nil && l.TerminationDate.Before(end) {
			end = *l.TerminationDate
		}
		s := span{from: maxTime(day(l.StartDate), from), to: minTime(day(end), to)}
		if s.to.Before(s.from) {
			continue
		}
		for _, lu := range l.LeaseUnits {
			coverage[lu.UnitID] = append(coverage[lu.UnitID], s)
		}
	}

	days := daysBetween(from, to)
	byProperty := make(map[uint]*Loss)
	var order []uint
	for _, u := range units {
		loss, ok := byProperty[u.PropertyID]
		if !ok {
			loss = &Loss{PropertyID: u.PropertyID, PropertyName: u.Property.Name}
			byProperty[u.PropertyID] = loss
			order = append(order, u.PropertyID)
		}
		vacant := days - coveredDays(coverage[u.ID])
		loss.UnitDays += days
		loss.VacantDays += vacant
		loss.Loss += u.TotalRent * 12 / 365 * float64(vacant)
	}

	out := make([]Loss, 0, len(order))
	for _, id := range order {
		l := byProperty[id]
		l.Loss = round2(l.Loss)
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyName < out[j].PropertyName })
	return out, nil
}

// coveredDays counts the distinct days inside spans, merging overlaps
func coveredDays(spans []span) int {
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].from.Before(spans[j].from) })

	total := 0
	cur := spans[0]
	for _, s := range spans[1:] {
		if !s.from.After(cur.to.AddDate(0, 0, 1)) {
			if s.to.After(cur.to) {
				cur.to = s.to
			}
			continue
		}
		total += daysBetween(cur.from, cur.to)
		cur = s
	}
	return total + daysBetween(cur.from, cur.to)
}

// daysBetween counts calendar days from a to b inclusive
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours()/24) + 1
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
