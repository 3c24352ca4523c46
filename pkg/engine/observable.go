package engine

// Observable is a synchronous callback list, the in-process counterpart of
// the host engine's observables. It is not safe for concurrent use; all
// observers run on the goroutine that calls Notify.
type Observable[T any] struct {
	observers []*Observer[T]
	notifying int
	dirty     bool
}

type Observer[T any] struct {
	callback func(T)
	owner    *Observable[T]
	removed  bool
}

// Remove detaches the observer. Safe to call more than once and from inside
// a callback.
func (o *Observer[T]) Remove() {
	if o == nil || o.removed {
		return
	}
	o.removed = true
	if o.owner != nil {
		o.owner.compact()
	}
}

func (o *Observer[T]) Removed() bool {
	return o == nil || o.removed
}

func (o *Observable[T]) Add(callback func(T)) *Observer[T] {
	observer := &Observer[T]{
		callback: callback,
		owner:    o,
	}
	o.observers = append(o.observers, observer)
	return observer
}

// Notify calls every observer that was registered before the call and has
// not been removed by the time its turn comes.
func (o *Observable[T]) Notify(value T) {
	o.notifying++
	count := len(o.observers)
	for i := 0; i < count; i++ {
		observer := o.observers[i]
		if observer.removed {
			continue
		}
		observer.callback(value)
	}
	o.notifying--
	if o.dirty {
		o.compact()
	}
}

func (o *Observable[T]) HasObservers() bool {
	for _, observer := range o.observers {
		if !observer.removed {
			return true
		}
	}
	return false
}

func (o *Observable[T]) Clear() {
	for _, observer := range o.observers {
		observer.removed = true
	}
	o.compact()
}

func (o *Observable[T]) compact() {
	if o.notifying > 0 {
		o.dirty = true
		return
	}
	o.dirty = false
	kept := o.observers[:0]
	for _, observer := range o.observers {
		if !observer.removed {
			kept = append(kept, observer)
		}
	}
	for i := len(kept); i < len(o.observers); i++ {
		o.observers[i] = nil
	}
	o.observers = kept
}
