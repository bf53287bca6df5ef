package monitoring

import (
	"net/http/httptest"

	"github.com/sockitlab/spisim/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase("Comp"),
		buffer:        sim.NewBuffer("Comp.Buf", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, "Comp.Port1"))

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should find registered components by name", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		w := httptest.NewRecorder()
		found := m.findComponentOr404(w, "Comp")

		Expect(found).To(BeIdenticalTo(sim.Component(c)))
	})

	It("should 404 on unknown components", func() {
		w := httptest.NewRecorder()
		found := m.findComponentOr404(w, "NoSuchComp")

		Expect(found).To(BeNil())
		Expect(w.Code).To(Equal(404))
	})

	It("should sort buffers by level", func() {
		small := sim.NewBuffer("Small", 4)
		full := sim.NewBuffer("Full", 2)
		full.Push(1)
		full.Push(2)
		m.buffers = []sim.Buffer{small, full}

		sorted := m.sortAndSelectBuffers("level", 0, 0)

		Expect(sorted).To(HaveLen(2))
		Expect(sorted[0].Name()).To(Equal("Full"))
	})

	It("should apply limit and offset when selecting buffers", func() {
		for i := 0; i < 4; i++ {
			b := sim.NewBuffer("Buf", 4)
			for j := 0; j <= i; j++ {
				b.Push(j)
			}
			m.buffers = append(m.buffers, b)
		}

		sorted := m.sortAndSelectBuffers("percent", 2, 1)

		Expect(sorted).To(HaveLen(2))
		Expect(sorted[0].Size()).To(Equal(3))
		Expect(sorted[1].Size()).To(Equal(2))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("transfer", 1024)
		bar.IncrementFinished(512)

		Expect(m.progressBars).To(HaveLen(1))
		Expect(bar.Finished).To(Equal(uint64(512)))

		m.CompleteProgressBar(bar)

		Expect(m.progressBars).To(BeEmpty())
	})

	It("should report engine time", func() {
		m.RegisterEngine(sim.NewSerialEngine())

		w := httptest.NewRecorder()
		m.now(w, httptest.NewRequest("GET", "/api/now", nil))

		Expect(w.Body.String()).To(ContainSubstring(`"now":`))
	})
})
