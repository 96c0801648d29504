// Package auth provides API key authentication for twinpulse.
//
// APIKeyInterceptor and APIKeyStreamInterceptor guard the gRPC server;
// Middleware guards the REST API and the WebSocket stream.
//
// When mode != "apikey" or key == "", everything passes through (local
// development with auth disabled). A missing or incorrect key is rejected
// with codes.Unauthenticated over gRPC and 401 over HTTP.
package auth
