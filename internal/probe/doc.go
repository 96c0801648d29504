// Package probe exposes machine status through the standard gRPC health
// service (grpc.health.v1.Health).
//
// The overall server ("") is SERVING while the process runs. The service
// named by Service reports NOT_SERVING while the machine status is critical
// and SERVING otherwise, so orchestrators and load balancers can react to a
// critical machine without speaking the REST API.
package probe
