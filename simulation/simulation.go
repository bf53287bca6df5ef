// Package simulation bundles the services a runnable scenario needs, such as
// the event engine, the data recorder, and the monitoring server.
package simulation

import (
	"github.com/sockitlab/spisim/datarecording"
	"github.com/sockitlab/spisim/monitoring"
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi/repack"
	"github.com/sockitlab/spisim/spi/serdes"
)

// A Simulation provides the services required to run a scenario.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder   datarecording.DataRecorder
	monitor        *monitoring.Monitor
	edgeTracer     *datarecording.EdgeTracer
	transferTracer *datarecording.TransferTracer

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It returns nil when
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterComponent registers a component with the simulation. When tracing
// is enabled, serializers get the edge tracer attached and output
// repackagers the transfer tracer.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}

	if s.edgeTracer != nil {
		if sd, ok := c.(*serdes.Comp); ok {
			sd.AcceptHook(s.edgeTracer)
		}
	}

	if s.transferTracer != nil {
		if o, ok := c.(*repack.Outward); ok {
			o.AcceptHook(s.transferTracer)
		}
	}
}

func (s *Simulation) registerPort(p sim.Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	return s.components[s.compNameIndex[name]]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	return s.ports[s.portNameIndex[name]]
}

// Terminate flushes all the recorded data and ends the simulation.
func (s *Simulation) Terminate() {
	s.dataRecorder.Flush()
}
