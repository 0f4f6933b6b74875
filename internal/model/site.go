package model

// Site is an addressable catalog endpoint. Kind selects the adapter
// implementation and Location is interpreted by that implementation.
type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
}
