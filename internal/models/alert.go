package models

// ExpiredServicesAlert is emitted for a customer whose expired-service count
// exceeds the configured limit.
type ExpiredServicesAlert struct {
	CustomerID string `json:"customer_id"`
	Count      int    `json:"count"`
}

// UpsellAlert is emitted per (customer, service) pair eligible for an upsell
// offer. A customer with several long-running services gets one alert each.
type UpsellAlert struct {
	CustomerID  string `json:"customer_id"`
	ServiceType string `json:"service_type"`
}
