package models

// Province is a top-level administrative region.
type Province struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Ward is a subdivision of a province. Users pick one during the
// location-selection flow before the feed unlocks.
type Ward struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	OldDescription string    `json:"oldDescription,omitempty"`
	ProvinceID     uint      `json:"provinceId"`
	Province       *Province `json:"province,omitempty"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
}
