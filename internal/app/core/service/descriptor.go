// Package service defines the shared descriptor type background services
// advertise to the lifecycle manager for operational visibility.
package service

// Layer describes the architectural slice a service belongs to.
type Layer string

const (
	LayerIngestion  Layer = "ingestion"
	LayerRetrieval  Layer = "retrieval"
	LayerMaintenance Layer = "maintenance"
	LayerIntent     Layer = "intent"
	LayerStreaming  Layer = "streaming"
	LayerStorage    Layer = "storage"
)

// Descriptor advertises a service's placement and capabilities so the
// "progress" endpoint (spec.md §9 "Background work") can enumerate
// long-running components without reaching into their internals.
type Descriptor struct {
	Name         string
	Domain       string
	Layer        Layer
	Capabilities []string
}

func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
