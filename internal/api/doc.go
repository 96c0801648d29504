// Package api implements the HTTP REST API for twinpulse.
//
// New(engine, machineID) returns an http.Handler that serves:
//
//	GET    /api/v1/snapshot     full snapshot: current, history, machine_status, alerts, generated_at
//	GET    /api/v1/current      latest reading
//	GET    /api/v1/history      readings, oldest first
//	GET    /api/v1/status       machine status evaluated from the latest reading
//	GET    /api/v1/alerts       alert log, newest first
//	DELETE /api/v1/alerts/{id}  dismiss; 204 whether or not the id was present
//	GET    /api/v1/health       service liveness plus a machine status summary
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. No external HTTP framework is used.
package api
