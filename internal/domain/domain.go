package domain

import "fmt"

// ParkingBand describes how far the vehicle can park from the site entrance.
// Wire values match the historical survey payload.
type ParkingBand string

const (
	ParkingNear   ParkingBand = "0-10m"
	ParkingMedium ParkingBand = "10-50m"
	ParkingFar    ParkingBand = ">50m"
)

// Valid reports whether b is one of the three recognized bands.
func (b ParkingBand) Valid() bool {
	switch b {
	case ParkingNear, ParkingMedium, ParkingFar:
		return true
	}
	return false
}

// ElevatorDims holds the usable elevator cabin measurements in centimeters
// plus its max load in kilograms. Kept as free-text strings: crews jot down
// whatever the inspection plate says.
type ElevatorDims struct {
	Width   string `json:"w,omitempty"`
	Depth   string `json:"d,omitempty"`
	Height  string `json:"h,omitempty"`
	MaxLoad string `json:"weight,omitempty"`
}

// GPSFix is a single-shot position acquired on site.
type GPSFix struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// MapURL returns a maps link for the fix, the same link the crew gets on the
// summary screen and in history exports.
func (g GPSFix) MapURL() string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%g,%g", g.Lat, g.Lng)
}

// VoiceNote is one finalized audio capture, payload encoded as a data URI.
type VoiceNote struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// Mission is the in-progress site survey: client and site identity, access
// constraints and notes. Inventory counts live in the ledger, not here.
type Mission struct {
	ClientName   string       `json:"clientName"`
	SiteName     string       `json:"siteName,omitempty"`
	Floor        string       `json:"floor"`
	DistanceKm   *float64     `json:"distanceKm,omitempty"`
	Elevator     bool         `json:"elevator"`
	ElevatorDims ElevatorDims `json:"elevatorDims"`
	ParkingBand  ParkingBand  `json:"parkingDistance"`
	Stairs       int          `json:"stairs"`
	Comments     string       `json:"comments,omitempty"`
	VoiceNotes   []VoiceNote  `json:"voiceNotes"`
	GPS          *GPSFix      `json:"gps,omitempty"`
}

// NewMission returns a blank record with the field defaults a fresh survey
// starts from: ground floor, elevator assumed usable, vehicle parked close.
func NewMission() Mission {
	return Mission{
		Floor:       "0",
		Elevator:    true,
		ParkingBand: ParkingNear,
		VoiceNotes:  []VoiceNote{},
	}
}

// HistoryRow is one previously submitted survey as returned by the remote
// store. The inventory snapshot stays string-encoded until someone actually
// opens the row detail.
type HistoryRow struct {
	Client     string  `json:"client"`
	Site       string  `json:"site"`
	Date       string  `json:"date"`
	MoveVolume float64 `json:"volMove"`
	DisposeVol float64 `json:"volTrash"`
	CrewDays   float64 `json:"manDays"`
	Vehicle    string  `json:"vehicle"`
	Cost       float64 `json:"cost"`
	Access     string  `json:"access"`
	Parking    string  `json:"parking"`
	GPS        string  `json:"gps"`
	Comments   string  `json:"comments"`
	AudioCount int     `json:"audioCount"`
	Inventory  string  `json:"inventory"`
}

// Event is one journal entry recorded alongside the survey draft.
type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts" format:"date-time"`
	Type     string `json:"type"`
	EntityID string `json:"entity_id,omitempty"`
	Payload  string `json:"payload_json"`
}
