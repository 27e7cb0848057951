package places

// latLng is the Maps Platform coordinate shape.
type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location latLng `json:"location"`
}

// geocodeResponse is the subset of the Geocoding API response we consume.
type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		FormattedAddress string   `json:"formatted_address"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
}

// nearbyResponse is the subset of the Places Nearby Search response we
// consume.
type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		Name     string   `json:"name"`
		Geometry geometry `json:"geometry"`
	} `json:"results"`
}
