package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/transcriptcheck/component"
)

// RouteInfo is one registered HTTP route.
type RouteInfo struct {
	Method string
	Path   string
}

// ConsumerInfo is one message consumer.
type ConsumerInfo struct {
	Group string
	Topic string
}

// Summary collects what the process started so it can print a tree after
// startup. Infrastructure is read from the registry; routes and consumers
// are tracked by the wiring code.
type Summary struct {
	serviceName     string
	version         string
	mode            string
	startupDuration time.Duration
	routes          []RouteInfo
	consumers       []ConsumerInfo
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// SetMode records the command the process runs (serve, worker, ...).
func (s *Summary) SetMode(mode string) { s.mode = mode }

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path})
}

// TrackConsumer records a message consumer.
func (s *Summary) TrackConsumer(group, topic string) {
	s.consumers = append(s.consumers, ConsumerInfo{Group: group, Topic: topic})
}

// Write prints the summary with live health from registry, which may be nil.
func (s *Summary) Write(ctx context.Context, w io.Writer, registry *component.Registry) {
	version := s.version
	if version == "" {
		version = "dev"
	}
	header := fmt.Sprintf("%s %s", s.serviceName, version)
	if s.mode != "" {
		header += " [" + s.mode + "]"
	}
	fmt.Fprintf(w, "\n%s started in %.2fs\n", header, s.startupDuration.Seconds())

	var comps []component.Component
	if registry != nil {
		comps = registry.All()
	}
	if len(comps) > 0 {
		fmt.Fprintf(w, "\nInfrastructure\n")
		for i, c := range comps {
			line := c.Name()
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name != "" {
					line = desc.Name
				}
				if desc.Details != "" {
					line += ": " + desc.Details
				}
				if desc.Port > 0 {
					line += fmt.Sprintf(" (:%d)", desc.Port)
				}
			}
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(comps)), line)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path)
		}
	}

	if len(s.consumers) > 0 {
		fmt.Fprintf(w, "\nConsumers\n")
		for i, c := range s.consumers {
			fmt.Fprintf(w, "   %s %s (group: %s)\n", treePrefix(i, len(s.consumers)), c.Topic, c.Group)
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\nHealth (%s)\n", component.Overall(results))
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " - " + h.Message
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(results)),
					healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}
	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
