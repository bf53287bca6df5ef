package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHandler struct {
	handledTimes []VTimeInSec
}

func (h *recordingHandler) Handle(e Event) error {
	h.handledTimes = append(h.handledTimes, e.Time())
	return nil
}

var _ = Describe("SerialEngine", func() {
	var (
		engine  *SerialEngine
		handler *recordingHandler
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		handler = &recordingHandler{}
	})

	It("should handle events in time order", func() {
		engine.Schedule(NewEventBase(2, handler))
		engine.Schedule(NewEventBase(1, handler))
		engine.Schedule(NewEventBase(3, handler))

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(handler.handledTimes).To(Equal(
			[]VTimeInSec{1, 2, 3}))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(3)))
	})

	It("should handle same-time secondary events after primary ones", func() {
		secondary := NewEventBase(1, handler)
		secondary.secondary = true
		engine.Schedule(secondary)

		primary := NewEventBase(1, &recordingHandler{})
		engine.Schedule(primary)

		evt := engine.nextEvent()
		Expect(evt.IsSecondary()).To(BeFalse())

		evt = engine.nextEvent()
		Expect(evt.IsSecondary()).To(BeTrue())
	})

	It("should panic when scheduling in the past", func() {
		engine.writeNow(10)

		Expect(func() {
			engine.Schedule(NewEventBase(5, handler))
		}).To(Panic())
	})

	It("should call simulation end handlers on Finished", func() {
		called := false
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(VTimeInSec) {
			called = true
		}))

		engine.Finished()

		Expect(called).To(BeTrue())
	})
})

type endHandlerFunc func(now VTimeInSec)

func (f endHandlerFunc) Handle(now VTimeInSec) {
	f(now)
}
