package console

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastKind is the style of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// ToastLifetime is how long a toast stays visible.
const ToastLifetime = 3 * time.Second

// Toast is a short-lived, non-blocking notification.
type Toast struct {
	ID        string    `json:"id"`
	Kind      ToastKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the toast outlived ToastLifetime at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= ToastLifetime
}

// Notifier receives feedback as it happens, e.g. to push it to a browser.
type Notifier interface {
	Toast(Toast)
	Loading(active bool)
}

// Feedback holds the loading indicator and the toast queue of one console.
// Begin and End are always paired; nested flows keep the indicator on
// until the outermost one finishes.
type Feedback struct {
	mu       sync.Mutex
	loading  int
	toasts   []Toast
	notifier Notifier
	now      func() time.Time
}

func NewFeedback(n Notifier) *Feedback {
	return &Feedback{notifier: n, now: time.Now}
}

// Begin shows the loading indicator.
func (f *Feedback) Begin() {
	f.mu.Lock()
	f.loading++
	first := f.loading == 1
	f.mu.Unlock()

	if first && f.notifier != nil {
		f.notifier.Loading(true)
	}
}

// End releases one Begin.
func (f *Feedback) End() {
	f.mu.Lock()
	last := false
	if f.loading > 0 {
		f.loading--
		last = f.loading == 0
	}
	f.mu.Unlock()

	if last && f.notifier != nil {
		f.notifier.Loading(false)
	}
}

// Loading reports whether the indicator is shown.
func (f *Feedback) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading > 0
}

// Show queues a toast.
func (f *Feedback) Show(kind ToastKind, message string) Toast {
	t := Toast{ID: uuid.NewString(), Kind: kind, Message: message, CreatedAt: f.now()}

	f.mu.Lock()
	f.toasts = append(f.toasts, t)
	f.mu.Unlock()

	if f.notifier != nil {
		f.notifier.Toast(t)
	}
	return t
}

func (f *Feedback) Success(message string) Toast { return f.Show(ToastSuccess, message) }
func (f *Feedback) Error(message string) Toast   { return f.Show(ToastError, message) }
func (f *Feedback) Info(message string) Toast    { return f.Show(ToastInfo, message) }

// Pending returns the queued toasts that are still visible.
func (f *Feedback) Pending() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible()
}

// Drain returns the visible toasts and empties the queue.
func (f *Feedback) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.visible()
	f.toasts = nil
	return out
}

// visible must be called with f.mu held.
func (f *Feedback) visible() []Toast {
	now := f.now()
	out := make([]Toast, 0, len(f.toasts))
	for _, t := range f.toasts {
		if !t.Expired(now) {
			out = append(out, t)
		}
	}
	return out
}
