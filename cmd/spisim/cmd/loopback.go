package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/simulation"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/controller"
	"github.com/sockitlab/spisim/spi/regfile"
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Run one transfer against a loopback wire.",
	Long: "`loopback` builds the full controller pipeline, connects the " +
		"serializer to a loopback wire, runs one transfer through the " +
		"register interface, and prints the word that was captured back.",
	Run: runLoopback,
}

func init() {
	loopbackCmd.Flags().String("data", "0xA5C3F00F",
		"Left-justified word to transmit, in hex")
	loopbackCmd.Flags().Int("length", 8,
		"Transfer length in serial clock cycles (1 to 32)")
	loopbackCmd.Flags().String("mode", "spi",
		"IO mode: three-wire, spi, dual, or quad")
	loopbackCmd.Flags().Int("sdw", spi.DefaultSDW,
		"Serializer data-register width in bits")
	loopbackCmd.Flags().Int("serial-freq", 25,
		"Serial domain frequency in MHz")
	loopbackCmd.Flags().Bool("trace", false,
		"Record every serial clock edge into the output database")
	loopbackCmd.Flags().Int("monitor", 0,
		"Expose the simulation over HTTP on the given port")
	loopbackCmd.Flags().String("output", "",
		"Output database file name, without extension")

	rootCmd.AddCommand(loopbackCmd)
}

func runLoopback(cmd *cobra.Command, _ []string) {
	dataStr, _ := cmd.Flags().GetString("data")
	length, _ := cmd.Flags().GetInt("length")
	modeStr, _ := cmd.Flags().GetString("mode")
	sdw, _ := cmd.Flags().GetInt("sdw")
	serialFreq, _ := cmd.Flags().GetInt("serial-freq")
	trace, _ := cmd.Flags().GetBool("trace")
	monitorPort, _ := cmd.Flags().GetInt("monitor")
	output, _ := cmd.Flags().GetString("output")

	data, err := strconv.ParseUint(dataStr, 0, 32)
	if err != nil {
		log.Fatalf("invalid data word %s: %v", dataStr, err)
	}

	mode, err := parseMode(modeStr)
	if err != nil {
		log.Fatal(err)
	}

	if length < 1 || length > spi.DataWidth {
		log.Fatalf("transfer length %d out of range", length)
	}

	s := buildSimulation(trace, monitorPort, output)
	defer s.Terminate()

	ctrl := controller.MakeBuilder().
		WithEngine(s.GetEngine()).
		WithSDW(sdw).
		WithSerialFreq(sim.Freq(serialFreq) * sim.MHz).
		Build("Ctrl")

	for _, c := range ctrl.Components() {
		s.RegisterComponent(c)
	}

	d := newDriver("Host", s.GetEngine(), ctrl)
	received := d.transfer(mode, length, uint32(data))

	fmt.Printf(
		"sent 0x%08X, received 0x%08X over %d clocks in %s mode "+
			"(%.3f us virtual time)\n",
		uint32(data), received, length, mode,
		float64(s.GetEngine().CurrentTime())*1e6)
}

func buildSimulation(
	trace bool,
	monitorPort int,
	output string,
) *simulation.Simulation {
	builder := simulation.MakeBuilder()

	if monitorPort > 0 {
		builder = builder.WithMonitorPort(monitorPort)
	} else {
		builder = builder.WithoutMonitoring()
	}

	if trace {
		builder = builder.WithEdgeTracing()
	}

	if output != "" {
		builder = builder.WithOutputFileName(output)
	}

	return builder.Build()
}

func parseMode(s string) (spi.IOMode, error) {
	switch s {
	case "three-wire":
		return spi.ThreeWire, nil
	case "spi":
		return spi.Spi, nil
	case "dual":
		return spi.Dual, nil
	case "quad":
		return spi.Quad, nil
	}

	return 0, fmt.Errorf(
		"unknown IO mode %q, expected three-wire, spi, dual, or quad", s)
}

// A driver plays the role of the host processor. It owns the port that
// register responses come back on and steps the engine after every access.
type driver struct {
	*sim.TickingComponent

	port sim.Port
	ctrl *controller.Controller

	engine sim.Engine
	msgs   []sim.Msg
}

func newDriver(
	name string,
	engine sim.Engine,
	ctrl *controller.Controller,
) *driver {
	d := new(driver)
	d.TickingComponent = sim.NewTickingComponent(name, engine, 100*sim.MHz, d)
	d.port = sim.NewPort(d, 4, 4, name+".Out")
	d.AddPort("Out", d.port)
	d.engine = engine
	d.ctrl = ctrl

	ctrl.CtrlConn.PlugIn(d.port)

	return d
}

func (d *driver) Tick() bool {
	msg := d.port.PeekIncoming()
	if msg == nil {
		return false
	}

	d.msgs = append(d.msgs, msg)
	d.port.RetrieveIncoming()

	return true
}

func (d *driver) writeReg(addr int, data uint32) {
	d.ctrl.RegFile.Top().Deliver(regfile.WriteReqBuilder{}.
		WithSrc(d.port.AsRemote()).
		WithDst(d.ctrl.RegFile.Top().AsRemote()).
		WithAddr(addr).
		WithData(data).
		Build())

	err := d.engine.Run()
	if err != nil {
		log.Fatal(err)
	}
}

func (d *driver) readReg(addr int) uint32 {
	d.ctrl.RegFile.Top().Deliver(regfile.ReadReqBuilder{}.
		WithSrc(d.port.AsRemote()).
		WithDst(d.ctrl.RegFile.Top().AsRemote()).
		WithAddr(addr).
		Build())

	err := d.engine.Run()
	if err != nil {
		log.Fatal(err)
	}

	last := d.msgs[len(d.msgs)-1]

	return last.(*regfile.RegReadRsp).Data
}

func (d *driver) transfer(mode spi.IOMode, length int, data uint32) uint32 {
	d.writeReg(regfile.RegData, data)
	d.writeReg(regfile.RegCtl, regfile.CtlStart|
		regfile.CtlClockEnable|
		regfile.CtlSlaveSelectEnable|
		regfile.CtlOutputEnable|
		regfile.CtlInputEnable|
		regfile.CtlLastSegment|
		uint32(mode)<<regfile.CtlModePos|
		uint32(length&regfile.CtlLengthMask))

	if d.readReg(regfile.RegIrq)&regfile.IrqRxPending == 0 {
		log.Fatal("transfer did not complete")
	}

	d.writeReg(regfile.RegIrq, regfile.IrqRxPending)

	return d.readReg(regfile.RegData)
}
