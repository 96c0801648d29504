package probe

import (
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/twinpulse/twinpulse/internal/engine"
	"github.com/twinpulse/twinpulse/pkg/types"
)

// Service is the health service name that tracks machine status.
const Service = "twinpulse.machine"

// Probe maps machine status onto a gRPC health server.
type Probe struct {
	srv *grpchealth.Server

	mu     sync.Mutex
	status string
}

// New returns a Probe reflecting initial.
func New(initial types.MachineStatus) *Probe {
	p := &Probe{srv: grpchealth.NewServer()}
	p.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	p.set(initial.Status)
	return p
}

// Register installs the health service on s.
func (p *Probe) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, p.srv)
}

// Observe updates the served status from a tick. It is an engine.Observer.
func (p *Probe) Observe(u engine.Update) {
	p.set(u.Snapshot.MachineStatus.Status)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (p *Probe) Shutdown() {
	p.srv.Shutdown()
}

func (p *Probe) set(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status == p.status {
		return
	}
	if p.status != "" {
		slog.Info("probe: machine status changed", "from", p.status, "to", status)
	}
	p.status = status
	p.srv.SetServingStatus(Service, servingStatus(status))
}

func servingStatus(status string) healthpb.HealthCheckResponse_ServingStatus {
	if status == types.StatusCritical {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
