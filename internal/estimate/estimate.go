// Package estimate turns a mission record, an inventory ledger and the
// active catalog into the logistics estimate: volumes, crew-days, vehicle
// plan and cost breakdown. Compute is pure; it never touches I/O and is
// cheap enough to re-run after every edit.
package estimate

import (
	"errors"
	"math"

	"moveline/internal/catalog"
	"moveline/internal/domain"
	"moveline/internal/inventory"
)

// VehicleType is the vehicle tier selected for the move volume.
type VehicleType string

const (
	VehicleNone  VehicleType = "none"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"
)

// ErrNonPositiveRate is returned when the effective productivity rate ends
// up at or below zero. That only happens with a pathological remote config;
// the engine refuses to divide by it rather than report infinite or negative
// crew-days.
var ErrNonPositiveRate = errors.New("productivity rate is not positive")

// CostBreakdown reports the five cost terms independently so estimates can
// be audited, not just totaled.
type CostBreakdown struct {
	Labor       float64 `json:"labor"`
	VehicleBase float64 `json:"vehicleBase"`
	VehicleKm   float64 `json:"vehicleKm"`
	Materials   float64 `json:"materials"`
	Total       float64 `json:"total"`
}

// Estimate is the derived logistics picture. It has no identity and no
// lifecycle of its own; it is recomputed from its inputs on demand.
type Estimate struct {
	MoveVolume     float64       `json:"volMove"`
	DisposeVolume  float64       `json:"volTrash"`
	HandlingVolume float64       `json:"volHandling"`
	Rate           float64       `json:"rate"`
	Difficulty     string        `json:"difficulty"`
	CrewDays       float64       `json:"manDays"`
	Vehicle        VehicleType   `json:"vehicle"`
	VehicleCount   int           `json:"vehicleCount"`
	RentalDays     float64       `json:"rentalDays"`
	HalfDay        bool          `json:"halfDay"`
	TotalKm        float64       `json:"totalKm"`
	ExtraKm        float64       `json:"extraKm"`
	Cost           CostBreakdown `json:"cost"`
}

// Half-day policy: below these thresholds the job fits a half-day rental.
// Fixed policy, deliberately not part of Params.
const (
	halfDayMaxCrewDays = 0.6
	halfDayMaxMoveVol  = 15.0
)

// Compute derives the estimate. Ledger entries whose item id is not in the
// catalog contribute zero: a reloaded catalog may have dropped a kind, and
// that must not break an open survey.
func Compute(m domain.Mission, l inventory.Ledger, c *catalog.Catalog) (Estimate, error) {
	var e Estimate

	for id, count := range l {
		kind, ok := c.Lookup(id)
		if !ok {
			continue
		}
		e.MoveVolume += float64(count.ToMove) * kind.UnitVolume
		e.DisposeVolume += float64(count.ToDispose) * kind.UnitVolume
	}
	e.HandlingVolume = e.MoveVolume + e.DisposeVolume

	e.Rate, e.Difficulty = productivity(m, c.Params)
	if e.Rate <= 0 {
		return Estimate{}, ErrNonPositiveRate
	}

	// Crew-days rounded up to tenths; zero volume is zero days, never a
	// minimum charge.
	if e.HandlingVolume > 0 {
		e.CrewDays = math.Ceil(e.HandlingVolume/e.Rate*10) / 10
	}

	// Vehicle sizing uses move volume only: disposal is handled by the crew
	// but does not ride in the rental vehicle. Exactly-at-capacity stays in
	// the van tier.
	switch {
	case e.MoveVolume == 0:
		e.Vehicle = VehicleNone
	case e.MoveVolume <= c.Params.VanCap:
		e.Vehicle = VehicleVan
		e.VehicleCount = int(math.Ceil(e.MoveVolume / c.Params.VanCap))
	default:
		e.Vehicle = VehicleTruck
		e.VehicleCount = int(math.Ceil(e.MoveVolume / c.Params.TruckCap))
	}

	if e.CrewDays <= halfDayMaxCrewDays && e.MoveVolume < halfDayMaxMoveVol {
		e.RentalDays = 0.5
		e.HalfDay = true
	} else {
		// Minimum two-person crew splits the workload across rental days.
		e.RentalDays = math.Max(1, math.Ceil(e.CrewDays/2))
	}

	if m.DistanceKm != nil {
		e.TotalKm = *m.DistanceKm * 2 // round trip
	}
	e.ExtraKm = math.Max(0, e.TotalKm-c.Params.KmIncluded)

	e.Cost.Labor = e.CrewDays * c.Params.ManDay
	e.Cost.VehicleBase = float64(e.VehicleCount) * rentalRate(e.Vehicle, e.HalfDay, c.Params) * math.Ceil(e.RentalDays)
	e.Cost.VehicleKm = float64(e.VehicleCount) * e.ExtraKm * kmRate(e.Vehicle, c.Params)
	e.Cost.Materials = e.MoveVolume * c.Params.MatRate
	e.Cost.Total = math.Round(e.Cost.Labor + e.Cost.VehicleBase + e.Cost.VehicleKm + e.Cost.Materials)

	return e, nil
}

// productivity resolves the rate and its label from the access constraints.
// Stairs count is recorded on the mission but deliberately does not scale
// the rate. Portage applies on top of whichever branch matched.
func productivity(m domain.Mission, p catalog.Params) (float64, string) {
	var rate float64
	var label string
	switch {
	case m.Elevator && m.ParkingBand == domain.ParkingNear:
		rate, label = p.ProdEasy, "Facile"
	case !m.Elevator:
		rate, label = p.ProdHard, "Difficile"
	default:
		rate, label = p.ProdStd, "Standard"
	}
	if m.ParkingBand == domain.ParkingFar {
		rate--
		label += " + Portage"
	}
	return rate, label
}

func rentalRate(v VehicleType, half bool, p catalog.Params) float64 {
	switch v {
	case VehicleVan:
		if half {
			return p.VanHalf
		}
		return p.VanDay
	case VehicleTruck:
		if half {
			return p.TruckHalf
		}
		return p.TruckDay
	}
	return 0
}

func kmRate(v VehicleType, p catalog.Params) float64 {
	switch v {
	case VehicleVan:
		return p.KmVan
	case VehicleTruck:
		return p.KmTruck
	}
	return 0
}
