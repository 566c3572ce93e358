package admission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/admission"
	"github.com/okian/pacer/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.MemoryStore
	ctrl     *admission.Controller
	upcoming model.Event
	past     model.Event
}

func newFixture(capacity, joggers int) fixture {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	for i := 0; i < joggers; i++ {
		_ = store.CreateJogger(ctx, model.Jogger{Email: email(i), Name: fmt.Sprintf("Jogger %d", i)})
	}
	upcoming := &model.Event{Name: "Harbour 5k", Date: now.Add(72 * time.Hour), MaxParticipants: capacity}
	past := &model.Event{Name: "Spring 5k", Date: now.Add(-72 * time.Hour), MaxParticipants: capacity}
	_ = store.CreateEvent(ctx, upcoming)
	_ = store.CreateEvent(ctx, past)
	return fixture{
		store:    store,
		ctrl:     admission.New(store, admission.WithClock(func() time.Time { return now })),
		upcoming: *upcoming,
		past:     *past,
	}
}

func email(i int) string { return fmt.Sprintf("j%d@example.com", i) }

func TestTryRegister(t *testing.T) {
	Convey("Given an upcoming event with two seats", t, func() {
		ctx := context.Background()
		f := newFixture(2, 4)

		Convey("When a jogger registers", func() {
			err := f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0))

			Convey("Then the seat is taken", func() {
				So(err, ShouldBeNil)
				ok, _ := f.store.IsRegistered(ctx, f.upcoming.ID, email(0))
				So(ok, ShouldBeTrue)
			})

			Convey("And registering again is rejected", func() {
				So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0)), ShouldEqual, admission.ErrAlreadyRegistered)
			})
		})

		Convey("When the event is full", func() {
			So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0)), ShouldBeNil)
			So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(1)), ShouldBeNil)

			Convey("Then a third jogger is turned away", func() {
				So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(2)), ShouldEqual, admission.ErrEventFull)
			})

			Convey("Then an already registered jogger still gets AlreadyRegistered", func() {
				So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(1)), ShouldEqual, admission.ErrAlreadyRegistered)
			})
		})

		Convey("When the event has passed", func() {
			Convey("Then registration is rejected as in the past", func() {
				So(f.ctrl.TryRegister(ctx, f.past.ID, email(0)), ShouldEqual, admission.ErrEventInPast)
			})
		})

		Convey("When the event is both past and full", func() {
			So(f.ctrl.Enroll(ctx, f.past.ID, email(0)), ShouldBeNil)
			So(f.ctrl.Enroll(ctx, f.past.ID, email(1)), ShouldBeNil)

			Convey("Then capacity is reported before the date", func() {
				So(f.ctrl.TryRegister(ctx, f.past.ID, email(2)), ShouldEqual, admission.ErrEventFull)
			})
		})

		Convey("When ids are unknown", func() {
			Convey("Then not-found errors are returned", func() {
				err := f.ctrl.TryRegister(ctx, 999, email(0))
				So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)

				err = f.ctrl.TryRegister(ctx, f.upcoming.ID, "ghost@example.com")
				So(errors.Is(err, repository.ErrJoggerNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestEnroll(t *testing.T) {
	Convey("Given a past event", t, func() {
		ctx := context.Background()
		f := newFixture(1, 2)

		Convey("When an organizer enrolls a jogger", func() {
			err := f.ctrl.Enroll(ctx, f.past.ID, email(0))

			Convey("Then the past-event check is skipped", func() {
				So(err, ShouldBeNil)
			})

			Convey("And capacity still applies", func() {
				So(f.ctrl.Enroll(ctx, f.past.ID, email(1)), ShouldEqual, admission.ErrEventFull)
			})
		})
	})
}

func TestUnregister(t *testing.T) {
	Convey("Given a registered jogger", t, func() {
		ctx := context.Background()
		f := newFixture(2, 2)
		So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0)), ShouldBeNil)

		Convey("When unregistering", func() {
			err := f.ctrl.Unregister(ctx, f.upcoming.ID, email(0))

			Convey("Then the seat is freed", func() {
				So(err, ShouldBeNil)
				n, _ := f.store.CountRegistrations(ctx, f.upcoming.ID)
				So(n, ShouldEqual, 0)
			})

			Convey("And every repeat yields NotRegistered", func() {
				for i := 0; i < 3; i++ {
					So(f.ctrl.Unregister(ctx, f.upcoming.ID, email(0)), ShouldEqual, admission.ErrNotRegistered)
				}
			})
		})

		Convey("When a jogger who never registered unregisters", func() {
			Convey("Then NotRegistered is returned", func() {
				So(f.ctrl.Unregister(ctx, f.upcoming.ID, email(1)), ShouldEqual, admission.ErrNotRegistered)
			})
		})

		Convey("When the event is unknown", func() {
			err := f.ctrl.Unregister(ctx, 999, email(0))

			Convey("Then ErrEventNotFound is returned", func() {
				So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestConcurrentAdmission(t *testing.T) {
	Convey("Given an event with capacity 5 and 100 joggers racing for it", t, func() {
		ctx := context.Background()
		const capacity, joggers = 5, 100
		f := newFixture(capacity, joggers)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int64
			full     atomic.Int64
			start    = make(chan struct{})
		)
		for i := 0; i < joggers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				switch err := f.ctrl.TryRegister(ctx, f.upcoming.ID, email(i)); {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, admission.ErrEventFull):
					full.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		Convey("Then exactly capacity registrations succeed", func() {
			So(accepted.Load(), ShouldEqual, capacity)
			So(full.Load(), ShouldEqual, joggers-capacity)
			n, _ := f.store.CountRegistrations(ctx, f.upcoming.ID)
			So(n, ShouldEqual, capacity)
		})
	})

	Convey("Given one jogger registering concurrently many times", t, func() {
		ctx := context.Background()
		f := newFixture(10, 1)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int64
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0)) == nil {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then only one attempt succeeds", func() {
			So(accepted.Load(), ShouldEqual, 1)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Given an event with one seat", t, func() {
		ctx := context.Background()
		f := newFixture(1, 2)

		Convey("When nobody is registered", func() {
			a, err := f.ctrl.Status(ctx, f.upcoming.ID, email(0))

			Convey("Then the jogger can register", func() {
				So(err, ShouldBeNil)
				So(a.Capacity, ShouldEqual, 1)
				So(a.Count, ShouldEqual, 0)
				So(a.CanRegister(), ShouldBeTrue)
			})
		})

		Convey("When the seat is taken", func() {
			So(f.ctrl.TryRegister(ctx, f.upcoming.ID, email(0)), ShouldBeNil)
			holder, _ := f.ctrl.Status(ctx, f.upcoming.ID, email(0))
			other, _ := f.ctrl.Status(ctx, f.upcoming.ID, email(1))

			Convey("Then both views report full", func() {
				So(holder.Registered, ShouldBeTrue)
				So(holder.Full, ShouldBeTrue)
				So(other.Registered, ShouldBeFalse)
				So(other.CanRegister(), ShouldBeFalse)
			})
		})

		Convey("When the event has passed", func() {
			a, _ := f.ctrl.Status(ctx, f.past.ID, "")

			Convey("Then it is reported as past", func() {
				So(a.Past, ShouldBeTrue)
				So(a.CanRegister(), ShouldBeFalse)
			})
		})

		Convey("When the event is unknown", func() {
			_, err := f.ctrl.Status(ctx, 999, "")

			Convey("Then ErrEventNotFound is returned", func() {
				So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)
			})
		})
	})
}
