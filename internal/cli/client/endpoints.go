package client

// Relay server endpoints.
const (
	endpointChat  = "/chat"
	endpointStock = "/stock"
)
