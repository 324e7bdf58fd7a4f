// Package wire defines the message tags and the binary payload codec
// exchanged between the root and leaf ranks.
package wire

// Message tags. The values are part of the wire contract and must not
// change between releases.
const (
	// TagRootLeafVehicle carries a serialized vehicle from root to the
	// leaf that owns its next node.
	TagRootLeafVehicle = 0x01

	// TagLeafRootVehicle hands an in-flight vehicle back to root for
	// re-routing after it crossed out of the leaf's partition.
	TagLeafRootVehicle = 0x02

	// TagEdgeLengthRequest asks root for the length of a directed
	// edge of the full graph.
	TagEdgeLengthRequest = 0x03

	// TagEdgeLengthResponse answers an edge-length request with a
	// single float64.
	TagEdgeLengthResponse = 0x04

	// TagLeafRootVehicleFinish notifies root that a vehicle parked.
	// The payload is the serialized vehicle so root can account for
	// its step counter.
	TagLeafRootVehicleFinish = 0x05

	// TagRootLeafTerminate tells a leaf to shut down. One payload
	// byte, unused.
	TagRootLeafTerminate = 0x06
)

// TagName returns a human-readable name for logging.
func TagName(tag int) string {
	switch tag {
	case TagRootLeafVehicle:
		return "ROOT_LEAF_VEHICLE"
	case TagLeafRootVehicle:
		return "LEAF_ROOT_VEHICLE"
	case TagEdgeLengthRequest:
		return "EDGE_LENGTH_REQUEST"
	case TagEdgeLengthResponse:
		return "EDGE_LENGTH_RESPONSE"
	case TagLeafRootVehicleFinish:
		return "LEAF_ROOT_VEHICLE_FINISH"
	case TagRootLeafTerminate:
		return "ROOT_LEAF_TERMINATE"
	default:
		return "UNKNOWN"
	}
}
