package transitroute

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng latLng `json:"latLng"`
}

type waypoint struct {
	Location location `json:"location"`
}

// computeRoutesRequest is the wire format for the computeRoutes call.
type computeRoutesRequest struct {
	Origin       waypoint `json:"origin"`
	Destination  waypoint `json:"destination"`
	TravelMode   string   `json:"travelMode"`
	LanguageCode string   `json:"languageCode,omitempty"`
}

// computeRoutesResponse is the subset of the response we consume.
type computeRoutesResponse struct {
	Routes []route `json:"routes"`
}

type route struct {
	Duration       string `json:"duration"` // e.g. "1234s"
	DistanceMeters int    `json:"distanceMeters"`
	Legs           []leg  `json:"legs"`
}

type leg struct {
	Steps []step `json:"steps"`
}

type step struct {
	TransitDetails *transitDetails `json:"transitDetails,omitempty"`
}

type transitDetails struct {
	TransitLine transitLine `json:"transitLine"`
}

type transitLine struct {
	Name      string `json:"name"`
	NameShort string `json:"nameShort"`
}

// errorResponse is the API's error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
