package stop

import "testing"

func TestStopType_IsValid(t *testing.T) {
	for _, valid := range []StopType{StopPickup, StopDropoff, StopBoth} {
		if !valid.IsValid() {
			t.Fatalf("%q should be valid", valid)
		}
	}

	for _, invalid := range []StopType{"", "layover", "Pickup"} {
		if invalid.IsValid() {
			t.Fatalf("%q should be invalid", invalid)
		}
	}
}
