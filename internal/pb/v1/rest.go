package pb

// REST routes serving the same messages as AlertService.
const (
	SendAlertPath  = "/api/v1/sos"
	ListAlertsPath = "/api/v1/alerts"
	HealthPath     = "/health"
)
