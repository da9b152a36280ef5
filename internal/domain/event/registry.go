package event

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// Drop reasons reported to Metrics
const (
	DropNativeError  = "native_error"
	DropEmptyPayload = "empty_payload"
	DropNoListeners  = "no_listeners"
	DropUnknownEvent = "unknown_event"
)

// PanicReporter is told about every recovered listener panic
type PanicReporter func(class bridge.EventClass, recovered any)

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the registry logger
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(metrics Metrics) RegistryOption {
	return func(r *Registry) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// WithPanicReporter sets the hook called for recovered listener panics
func WithPanicReporter(reporter PanicReporter) RegistryOption {
	return func(r *Registry) {
		r.reportPanic = reporter
	}
}

// Registry keeps the subscriber lists for both native event classes and
// dispatches native events to them.
//
// Listeners are invoked synchronously, in registration order, on the
// goroutine that delivered the event. A listener is registered at most once
// per class; adding it again is a no-op. A panicking listener is recovered
// and reported, and the remaining listeners still run.
type Registry struct {
	module      bridge.NativeModule
	source      bridge.EventSource
	logger      *zap.Logger
	metrics     Metrics
	reportPanic PanicReporter

	attachMu sync.Mutex
	attached atomic.Bool

	mu             sync.Mutex
	infoListeners  subscriberList[PurchaserInfoUpdateListener]
	promoListeners subscriberList[ShouldPurchasePromoProductListener]
}

// NewRegistry creates an empty registry. The registry attaches itself to
// source when the first listener of any class is added. A nil source is
// allowed when events are fed to Dispatch directly.
func NewRegistry(module bridge.NativeModule, source bridge.EventSource, opts ...RegistryOption) *Registry {
	r := &Registry{
		module:  module,
		source:  source,
		logger:  zap.NewNop(),
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddPurchaserInfoUpdateListener subscribes l to purchaser info updates
func (r *Registry) AddPurchaserInfoUpdateListener(l PurchaserInfoUpdateListener) error {
	if err := checkListener(l); err != nil {
		return err
	}
	if err := r.ensureAttached(); err != nil {
		return err
	}

	added, count, err := r.register(func() (bool, error) { return r.infoListeners.add(l) }, r.infoListeners.len)
	if err != nil {
		return err
	}

	r.logRegistration(bridge.ClassPurchaserInfoUpdated, "Listener added", added, count)
	return nil
}

// RemovePurchaserInfoUpdateListener unsubscribes l. Unknown listeners are ignored.
func (r *Registry) RemovePurchaserInfoUpdateListener(l PurchaserInfoUpdateListener) {
	if checkListener(l) != nil {
		return
	}

	removed, count, err := r.register(func() (bool, error) { return r.infoListeners.remove(l) }, r.infoListeners.len)
	if err != nil {
		r.logger.Warn("Listener not removed", zap.String("event_class", string(bridge.ClassPurchaserInfoUpdated)), zap.Error(err))
		return
	}

	r.logRegistration(bridge.ClassPurchaserInfoUpdated, "Listener removed", removed, count)
}

// AddShouldPurchasePromoProductListener subscribes l to promoted purchases
func (r *Registry) AddShouldPurchasePromoProductListener(l ShouldPurchasePromoProductListener) error {
	if err := checkListener(l); err != nil {
		return err
	}
	if err := r.ensureAttached(); err != nil {
		return err
	}

	added, count, err := r.register(func() (bool, error) { return r.promoListeners.add(l) }, r.promoListeners.len)
	if err != nil {
		return err
	}

	r.logRegistration(bridge.ClassShouldPurchasePromoProduct, "Listener added", added, count)
	return nil
}

// RemoveShouldPurchasePromoProductListener unsubscribes l. Unknown listeners are ignored.
func (r *Registry) RemoveShouldPurchasePromoProductListener(l ShouldPurchasePromoProductListener) {
	if checkListener(l) != nil {
		return
	}

	removed, count, err := r.register(func() (bool, error) { return r.promoListeners.remove(l) }, r.promoListeners.len)
	if err != nil {
		r.logger.Warn("Listener not removed", zap.String("event_class", string(bridge.ClassShouldPurchasePromoProduct)), zap.Error(err))
		return
	}

	r.logRegistration(bridge.ClassShouldPurchasePromoProduct, "Listener removed", removed, count)
}

// ListenerCount returns the number of listeners registered for class
func (r *Registry) ListenerCount(class bridge.EventClass) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch class {
	case bridge.ClassPurchaserInfoUpdated:
		return r.infoListeners.len()
	case bridge.ClassShouldPurchasePromoProduct:
		return r.promoListeners.len()
	default:
		return 0
	}
}

// Attached reports whether the registry is attached to its event source
func (r *Registry) Attached() bool {
	return r.attached.Load()
}

// Dispatch delivers a native event to the listeners of its class.
// Purchaser info updates that carry a native error are dropped, and so are
// updates with neither purchaser info nor an error, so listeners never
// receive a nil snapshot.
func (r *Registry) Dispatch(ev bridge.NativeEvent) {
	switch e := ev.(type) {
	case bridge.PurchaserInfoUpdatedEvent:
		r.dispatchPurchaserInfo(e)
	case *bridge.PurchaserInfoUpdatedEvent:
		if e != nil {
			r.dispatchPurchaserInfo(*e)
		}
	case bridge.ShouldPurchasePromoProductEvent:
		r.dispatchPromoProduct(e)
	case *bridge.ShouldPurchasePromoProductEvent:
		if e != nil {
			r.dispatchPromoProduct(*e)
		}
	default:
		r.logger.Warn("Ignoring unknown native event", zap.String("type", fmt.Sprintf("%T", ev)))
		r.metrics.RecordDropped("unknown", DropUnknownEvent)
	}
}

func (r *Registry) dispatchPurchaserInfo(e bridge.PurchaserInfoUpdatedEvent) {
	class := bridge.ClassPurchaserInfoUpdated

	if e.Error != nil {
		r.logger.Debug("Dropping purchaser info update carrying an error",
			zap.String("code", e.Error.Code),
			zap.String("readable_error_code", e.Error.ReadableErrorCode),
		)
		r.metrics.RecordDropped(string(class), DropNativeError)
		return
	}
	if e.PurchaserInfo == nil {
		r.metrics.RecordDropped(string(class), DropEmptyPayload)
		return
	}

	r.mu.Lock()
	listeners := r.infoListeners.snapshot()
	r.mu.Unlock()

	if len(listeners) == 0 {
		r.metrics.RecordDropped(string(class), DropNoListeners)
		return
	}

	for i, l := range listeners {
		r.invoke(class, i, func() { l.OnPurchaserInfoUpdated(e.PurchaserInfo) })
	}
	r.metrics.RecordDispatch(string(class), len(listeners))
}

func (r *Registry) dispatchPromoProduct(e bridge.ShouldPurchasePromoProductEvent) {
	class := bridge.ClassShouldPurchasePromoProduct

	r.mu.Lock()
	listeners := r.promoListeners.snapshot()
	r.mu.Unlock()

	if len(listeners) == 0 {
		r.metrics.RecordDropped(string(class), DropNoListeners)
		return
	}

	purchase := NewDeferredPurchase(e.CallbackID, r.module)
	for i, l := range listeners {
		r.invoke(class, i, func() { l.OnShouldPurchasePromoProduct(purchase) })
	}
	r.metrics.RecordDispatch(string(class), len(listeners))
}

func (r *Registry) invoke(class bridge.EventClass, index int, call func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Listener panicked",
				zap.String("event_class", string(class)),
				zap.Int("listener_index", index),
				zap.Any("panic", rec),
			)
			r.metrics.RecordListenerPanic(string(class))
			if r.reportPanic != nil {
				r.reportPanic(class, rec)
			}
		}
	}()
	call()
}

func (r *Registry) ensureAttached() error {
	if r.attached.Load() {
		return nil
	}

	r.attachMu.Lock()
	defer r.attachMu.Unlock()

	if r.attached.Load() {
		return nil
	}
	if r.source != nil {
		if err := r.source.Attach(r); err != nil {
			return fmt.Errorf("%w: %w", domainErrors.ErrEventSourceAttach, err)
		}
		r.logger.Info("Attached to native event source")
	}
	r.attached.Store(true)
	return nil
}

// register runs a list mutation under the lock and returns the new length
func (r *Registry) register(mutate func() (bool, error), length func() int) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := mutate()
	return changed, length(), err
}

func (r *Registry) logRegistration(class bridge.EventClass, msg string, changed bool, total int) {
	r.logger.Debug(msg,
		zap.String("event_class", string(class)),
		zap.Bool("changed", changed),
		zap.Int("total_listeners", total),
	)
}

func checkListener(l any) error {
	if l == nil {
		return domainErrors.ErrNilListener
	}
	t := reflect.TypeOf(l)
	if !t.Comparable() {
		return fmt.Errorf("%w: %s", domainErrors.ErrListenerNotComparable, t)
	}
	if v := reflect.ValueOf(l); t.Kind() == reflect.Pointer && v.IsNil() {
		return domainErrors.ErrNilListener
	}
	return comparableValue(l)
}

// comparableValue catches comparable types holding an uncomparable value,
// such as a struct with a func stored in an interface field
func comparableValue(l any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", domainErrors.ErrListenerNotComparable, rec)
		}
	}()
	var same any = l
	_ = l == same
	return nil
}

// subscriberList is an ordered set keyed by interface equality
type subscriberList[L any] struct {
	items []L
}

func (s *subscriberList[L]) add(l L) (bool, error) {
	i, err := s.indexOf(l)
	if err != nil || i >= 0 {
		return false, err
	}
	s.items = append(s.items, l)
	return true, nil
}

func (s *subscriberList[L]) remove(l L) (bool, error) {
	i, err := s.indexOf(l)
	if err != nil || i < 0 {
		return false, err
	}
	s.items = slices.Delete(slices.Clone(s.items), i, i+1)
	return true, nil
}

// indexOf compares by interface equality. A comparable type can still hold
// an uncomparable dynamic value in an interface field, which makes == panic.
func (s *subscriberList[L]) indexOf(l L) (index int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			index = -1
			err = fmt.Errorf("%w: %v", domainErrors.ErrListenerNotComparable, rec)
		}
	}()

	for i, item := range s.items {
		if any(item) == any(l) {
			return i, nil
		}
	}
	return -1, nil
}

func (s *subscriberList[L]) len() int {
	return len(s.items)
}

func (s *subscriberList[L]) snapshot() []L {
	return slices.Clone(s.items)
}
