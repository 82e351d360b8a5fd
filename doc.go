// Package storex is a single-process, in-memory reactive state container.
//
// A Store holds one state tree: a map from slice name to the value owned by
// that slice's reducer. Actions are dispatched synchronously through an
// optional middleware chain into the combined reducer, and subscribed
// listeners are notified after every applied change. Slices and memoized
// selectors can be registered at runtime; actions dispatched before the first
// slice exists are queued and replayed once slices are added.
//
// Quick start:
//
//	store, err := storex.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = store.AddReducers(map[string]storex.Reducer{
//		"counter": storex.NewSlice(0).
//			On("inc", func(n int, _ storex.Action) int { return n + 1 }).
//			Reducer(),
//	})
//	unsubscribe, _ := store.Subscribe(func() { fmt.Println(store.GetState()) })
//	defer unsubscribe()
//	store.Dispatch(storex.NewAction("inc", nil))
//
// A Store is not safe for concurrent use. Reducers and listeners must not
// dispatch; doing so fails with ErrReentrantDispatch.
package storex
