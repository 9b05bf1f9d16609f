package routes

// Version is the API version segment used in routing.
const Version = "v1"

// Base returns the versioned API base path (e.g., "/api/v1").
func Base() string {
	return "/api/" + Version
}

// HealthVersioned returns the versioned health path (e.g., "/api/v1/health").
func HealthVersioned() string {
	return Base() + "/health"
}

// Trello returns the tracker base path (e.g., "/api/v1/trello").
func Trello() string {
	return Base() + "/trello"
}

// BRD returns the generation base path (e.g., "/api/v1/brd").
func BRD() string {
	return Base() + "/brd"
}

// Labels returns the label taxonomy base path (e.g., "/api/v1/labels").
func Labels() string {
	return Base() + "/labels"
}

// Debug returns the debug base path (e.g., "/api/v1/debug").
func Debug() string {
	return Base() + "/debug"
}
