package http

import (
	"net/http"
	"os"

	"github.com/bincyber/beesly/pkg/authsdk"
	"github.com/bincyber/beesly/pkg/httpx"
)

// handleIndex lists the service's endpoints and their methods.
func (r *Router) handleIndex(w http.ResponseWriter, _ *http.Request) {
	hostname, _ := os.Hostname()

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"hostname": hostname,
		"app":      r.appName,
		"version":  r.buildVersion,
		"routes":   r.routes,
	})
}

// handleServiceInfo reports app, host and (when on EC2) instance
// metadata.
func (r *Router) handleServiceInfo(w http.ResponseWriter, req *http.Request) {
	response := map[string]any{
		"app":    r.sysinfo.App(),
		"system": r.sysinfo.System(),
	}

	if ec2, ok := r.sysinfo.EC2(req.Context()); ok {
		response["aws"] = ec2
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

// handleServiceVersion reports the service name and version.
func (r *Router) handleServiceVersion(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.VersionResponse{
		App:     r.appName,
		Version: r.buildVersion,
	})
}

// handleServiceHealth is the health check endpoint for load balancers
// and monitoring systems.
func (r *Router) handleServiceHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		r.appName: "OK",
	})
}
