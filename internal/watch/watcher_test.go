package watch_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/purelink/purelink/internal/cleaner"
	"github.com/purelink/purelink/internal/clipboard"
	"github.com/purelink/purelink/internal/feedback"
	"github.com/purelink/purelink/internal/rules"
	"github.com/purelink/purelink/internal/watch"
)

type switchToggle struct{ on atomic.Bool }

func (s *switchToggle) Enabled() bool { return s.on.Load() }

type recorder struct {
	mu    sync.Mutex
	pairs [][2]string
	kinds []feedback.Kind
}

func (r *recorder) Record(_ context.Context, original, cleaned string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, [2]string{original, cleaned})
	return nil
}

func (r *recorder) Notify(kind feedback.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recorder) Pairs() [][2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]string(nil), r.pairs...)
}

func (r *recorder) Kinds() []feedback.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feedback.Kind(nil), r.kinds...)
}

// processorFunc lets a test intercept processing.
type processorFunc func(ctx context.Context, text string, unshorten bool) (string, []cleaner.Change)

func (f processorFunc) ProcessDetailed(ctx context.Context, text string, unshorten bool) (string, []cleaner.Change) {
	return f(ctx, text, unshorten)
}

// unlabeled behaves like a clipboard that cannot carry labels.
type unlabeled struct{ *clipboard.Memory }

func (u unlabeled) Read() (clipboard.Snapshot, error) {
	snap, err := u.Memory.Read()
	snap.Label = ""
	return snap, err
}

var _ = Describe("Watcher", func() {
	var (
		mem       *clipboard.Memory
		toggle    *switchToggle
		rec       *recorder
		processor watch.Processor
		clip      clipboard.Clipboard
		quiet     time.Duration
		w         *watch.Watcher
		cancel    context.CancelFunc
		done      chan error
	)

	start := func() {
		w = watch.New(
			watch.Config{QuietWindow: quiet},
			watch.Deps{
				Clipboard: clip,
				Processor: processor,
				Toggle:    toggle,
				Notifier:  rec,
				Recorder:  rec,
			},
		)
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- w.Run(ctx) }()
		Eventually(mem.Subscribers).Should(Equal(1))
	}

	BeforeEach(func() {
		mem = clipboard.NewMemory()
		clip = mem
		toggle = &switchToggle{}
		toggle.on.Store(true)
		rec = &recorder{}
		processor = cleaner.NewProcessor(rules.NewStore(), nil)
		quiet = 150 * time.Millisecond
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
			cancel = nil
		}
	})

	Context("when a link with tracking parameters is copied", func() {
		BeforeEach(func() { start() })

		It("writes the cleaned text back with its own label", func() {
			mem.Set("https://example.com/a?utm_source=x&id=5", "")

			Eventually(mem.Current).Should(Equal(clipboard.Snapshot{
				Text:    "https://example.com/a?id=5",
				Label:   clipboard.OwnLabel,
				Present: true,
			}))
			Expect(w.Cleaned()).To(BeEquivalentTo(1))
		})

		It("notifies and records the clean", func() {
			mem.Set("see https://x.co/a?fbclid=1 now", "")

			Eventually(rec.Pairs).Should(Equal([][2]string{
				{"see https://x.co/a?fbclid=1 now", "see https://x.co/a now"},
			}))
			Expect(rec.Kinds()).To(Equal([]feedback.Kind{feedback.Pulse, feedback.Message}))
		})

		It("ignores its own write echo", func() {
			mem.Set("https://e.com/?gclid=1", "")

			Eventually(mem.Writes).Should(HaveLen(1))
			Expect(w.State()).To(Equal(watch.Gated))
			// past the quiet window the echo is re-examined and skipped by label
			Consistently(mem.Writes, 3*quiet, 20*time.Millisecond).Should(HaveLen(1))
			Expect(w.State()).To(Equal(watch.Idle))
		})

		It("cleans a later copy after the window", func() {
			mem.Set("https://a.co/?si=1", "")
			Eventually(mem.Writes).Should(HaveLen(1))

			time.Sleep(2 * quiet)
			mem.Set("https://b.co/?si=2", "")
			Eventually(mem.Current).Should(HaveField("Text", "https://b.co/"))
			Expect(mem.Writes()).To(HaveLen(2))
		})
	})

	DescribeTable("leaves the clipboard alone",
		func(text, label string) {
			start()
			mem.Set(text, label)
			Consistently(mem.Writes, 200*time.Millisecond).Should(BeEmpty())
		},
		Entry("already clean", "https://example.com/a?id=5", ""),
		Entry("no url", "just some text utm_source=x", ""),
		Entry("blank", "   \n\t", ""),
		Entry("own label", "https://example.com/a?utm_source=x", clipboard.OwnLabel),
		Entry("binary content", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR https://e.com/?si=1", ""),
	)

	It("does nothing while monitoring is off", func() {
		toggle.on.Store(false)
		start()

		mem.Set("https://example.com/a?utm_source=x", "")
		Consistently(mem.Writes, 200*time.Millisecond).Should(BeEmpty())

		toggle.on.Store(true)
		mem.Set("https://example.com/b?utm_source=x", "")
		Eventually(mem.Current).Should(HaveField("Text", "https://example.com/b"))
	})

	It("skips an empty clipboard", func() {
		start()
		mem.Clear()
		Consistently(mem.Writes, 100*time.Millisecond).Should(BeEmpty())
	})

	Context("when the clipboard cannot carry labels", func() {
		BeforeEach(func() {
			clip = unlabeled{mem}
			quiet = 400 * time.Millisecond
			// never converges, so only the gate stands between a write and the next pass
			processor = processorFunc(func(_ context.Context, text string, _ bool) (string, []cleaner.Change) {
				return text + "!", nil
			})
			start()
		})

		It("does not clean again while the gate is closed", func() {
			mem.Set("https://a.co/x", "")

			Eventually(mem.Writes).Should(HaveLen(1))
			Consistently(mem.Writes, 250*time.Millisecond, 10*time.Millisecond).Should(HaveLen(1))
		})
	})

	Context("when the user copies again during processing", func() {
		BeforeEach(func() {
			base := cleaner.NewProcessor(rules.NewStore(), nil)
			var calls atomic.Int32
			processor = processorFunc(func(ctx context.Context, text string, unshorten bool) (string, []cleaner.Change) {
				if calls.Add(1) == 1 {
					mem.Set("https://newer.co/?fbclid=2", "")
				}
				return base.ProcessDetailed(ctx, text, unshorten)
			})
			start()
		})

		It("keeps the newer copy and cleans that instead", func() {
			mem.Set("https://older.co/?fbclid=1", "")

			Eventually(mem.Current).Should(HaveField("Text", "https://newer.co/"))
			Expect(mem.Writes()).To(HaveLen(1))
		})
	})

	Context("when processing panics", func() {
		BeforeEach(func() {
			base := cleaner.NewProcessor(rules.NewStore(), nil)
			processor = processorFunc(func(ctx context.Context, text string, unshorten bool) (string, []cleaner.Change) {
				if strings.Contains(text, "boom") {
					panic("malformed input")
				}
				return base.ProcessDetailed(ctx, text, unshorten)
			})
			start()
		})

		It("recovers and keeps watching", func() {
			mem.Set("https://boom.co/?si=1", "")
			Consistently(mem.Writes, 100*time.Millisecond).Should(BeEmpty())
			Expect(w.State()).To(Equal(watch.Idle))

			mem.Set("https://ok.co/?si=1", "")
			Eventually(mem.Current).Should(HaveField("Text", "https://ok.co/"))
		})
	})

	It("returns when the context is cancelled", func() {
		start()
		cancel()
		Eventually(done).Should(Receive(BeNil()))
		cancel = nil
	})
})
