package models

// LocalizedName holds the traditional Chinese and English display names
type LocalizedName struct {
	TC string `json:"TC"`
	EN string `json:"EN"`
}

// Station represents a physical rail station
type Station struct {
	ID   string
	Name LocalizedName
}

// Route represents a rail line
type Route struct {
	ID   string
	Name LocalizedName
}

// SubRoute represents one directional, physically distinct service pattern of a route
// (a branch or a direction on a line)
type SubRoute struct {
	ID      string
	RouteID string
	Name    LocalizedName
}

// Membership records that a station is served by a sub-route at a given position
type Membership struct {
	SubRouteID string
	RouteID    string
	Sequence   int
}

// TransferLink is a symmetric walking transfer between two co-located stations
type TransferLink struct {
	StationA string
	StationB string
	Duration int // seconds
}

// Other returns the station on the opposite end of the link, or "" if station is not an endpoint
func (l TransferLink) Other(station string) string {
	switch station {
	case l.StationA:
		return l.StationB
	case l.StationB:
		return l.StationA
	default:
		return ""
	}
}

// Segment is one uninterrupted ride on a single sub-route
type Segment struct {
	RouteID       string `json:"route_id"`
	SubRouteID    string `json:"sub_route_id"`
	FromStationID string `json:"from_station_id"`
	ToStationID   string `json:"to_station_id"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Duration      int    `json:"duration_seconds"`
}

// Itinerary is the ordered list of segments answering a journey query
type Itinerary []Segment

// Schedule is the timing block of a journey leg
type Schedule struct {
	DepartureTime string `json:"DepartureTime"`
	ArrivalTime   string `json:"ArrivalTime"`
	Duration      int    `json:"Duration"`
}

// JourneyLeg is a segment enriched with display names for API responses
type JourneyLeg struct {
	RouteID         string        `json:"RouteId"`
	RouteName       LocalizedName `json:"RouteName"`
	SubRouteID      string        `json:"SubRouteId"`
	SubRouteName    LocalizedName `json:"SubRouteName"`
	FromStationID   string        `json:"FromStationId"`
	FromStationName LocalizedName `json:"FromStationName"`
	ToStationID     string        `json:"ToStationId"`
	ToStationName   LocalizedName `json:"ToStationName"`
	Schedule        Schedule      `json:"Schedule"`
}

// JourneyQuery is the input of a journey search
type JourneyQuery struct {
	FromStationID string
	ToStationID   string
	DepartureTime string // "HH:MM:SS"; empty means now
	Strategy      string
}

// Trip is one scheduled run of a sub-route in a direction
type Trip struct {
	ID         string
	RouteID    string
	SubRouteID string
	Direction  int
	Calls      []Call
}

// Call is a trip's stop at a station, times in seconds since service-day midnight
type Call struct {
	StationID string
	Sequence  int
	Arrival   int
	Departure int
}
