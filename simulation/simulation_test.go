package simulation

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sockitlab/spisim/sim"
)

var _ = Describe("Simulation", func() {
	var (
		mockCtrl   *gomock.Controller
		simulation *Simulation
		comp       *MockComponent
		port       *MockPort
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		simulation = MakeBuilder().WithoutMonitoring().Build()

		comp = NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()

		port = NewMockPort(mockCtrl)
		port.EXPECT().Name().Return("Comp.Port").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()

		simulation.Terminate()

		os.Remove("spisim_" + simulation.ID() + ".sqlite3")
	})

	It("should register a component", func() {
		comp.EXPECT().Ports().Return([]sim.Port{port}).AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(simulation.GetComponentByName("Comp")).
			To(BeIdenticalTo(sim.Component(comp)))
		Expect(simulation.GetPortByName("Comp.Port")).
			To(BeIdenticalTo(sim.Port(port)))
	})

	It("should return all registered components", func() {
		comp.EXPECT().Ports().Return([]sim.Port{port}).AnyTimes()

		simulation.RegisterComponent(comp)

		comps := simulation.Components()
		Expect(comps).To(HaveLen(1))
		Expect(comps[0]).To(BeIdenticalTo(sim.Component(comp)))
	})

	It("should reject duplicated component names", func() {
		comp.EXPECT().Ports().Return(nil).AnyTimes()

		simulation.RegisterComponent(comp)

		Expect(func() {
			simulation.RegisterComponent(comp)
		}).To(Panic())
	})

	Context("Builder with custom output file", func() {
		var customSim *Simulation

		AfterEach(func() {
			if customSim != nil {
				customSim.Terminate()
				os.Remove("test_custom_output.sqlite3")
				customSim = nil
			}
		})

		It("should allow custom output file to be set", func() {
			customSim = MakeBuilder().
				WithoutMonitoring().
				WithOutputFileName("test_custom_output").
				Build()

			Expect(customSim).ToNot(BeNil())
			Expect(customSim.GetDataRecorder()).ToNot(BeNil())
		})
	})
})
