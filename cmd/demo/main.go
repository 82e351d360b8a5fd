package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/comalice/storex"
	"github.com/comalice/storex/builder"
	"github.com/comalice/storex/internal/production"
)

func main() {
	store, err := storex.New(storex.WithID("demo"), storex.WithMiddleware(storex.ThunkMiddleware))
	if err != nil {
		panic(err)
	}

	// Dispatched before any slice exists: queued, replayed by AddReducers.
	if _, _, err := store.Dispatch(storex.NewAction("light/next", nil)); err != nil {
		panic(err)
	}

	persister, err := production.NewJSONPersister(os.TempDir())
	if err != nil {
		panic(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := store.Load(ctx, persister); err != nil {
		panic(err)
	}

	publisher := production.NewChannelPublisher(100)
	detach, err := publisher.Attach(store)
	if err != nil {
		panic(err)
	}
	defer detach()

	cycle := map[string]string{"red": "green", "green": "yellow", "yellow": "red"}
	err = store.AddReducers(map[string]storex.Reducer{
		"light": storex.NewSlice("red").
			On("light/next", func(color string, _ storex.Action) string { return cycle[color] }).
			Reducer(),
		"transitions": storex.NewSlice(0).On("light/next", builder.Add(1)).Reducer(),
	})
	if err != nil {
		panic(err)
	}

	// A thunk reads state before deciding what to dispatch.
	_, err = store.DispatchValue(storex.Thunk(func(dispatch storex.DispatchFunc, getState func() storex.State) (any, error) {
		if getState()["light"] == "green" {
			return dispatch(storex.NewAction("light/next", nil))
		}
		return nil, nil
	}))
	if err != nil {
		panic(err)
	}

	if err := store.Save(ctx, persister); err != nil {
		panic(err)
	}

	for {
		select {
		case change := <-publisher.Changes():
			fmt.Printf("state %s: %v\n", change.Version, change.State)
		default:
			fmt.Println("final:", store.GetState())
			return
		}
	}
}
