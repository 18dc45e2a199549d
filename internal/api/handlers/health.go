package handlers

import "net/http"

// Health reports liveness. Unauthenticated so load balancers can probe it.
func Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
