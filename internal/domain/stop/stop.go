package stop

import "time"

type StopType string

const (
	StopPickup  StopType = "pickup"
	StopDropoff StopType = "dropoff"
	StopBoth    StopType = "both"
)

func (t StopType) IsValid() bool {
	switch t {
	case StopPickup, StopDropoff, StopBoth:
		return true
	default:
		return false
	}
}

type Stop struct {
	ID          string    `json:"id"`
	Address     string    `json:"stopAddress"`
	Type        StopType  `json:"stopType"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImportRecord is the wire form of a stop as read from an import file.
// Validation tags mirror what the store requires before a Stop is created.
type ImportRecord struct {
	Address     string `json:"stopAddress" validate:"required"`
	Type        string `json:"stopType" validate:"required,oneof=pickup dropoff both"`
	Description string `json:"description"`
}
