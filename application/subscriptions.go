package application

import (
	"context"

	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"
	"bankroll/events"
)

// RegisterSubscriptions wires the stats aggregator onto the event bus.
// Handlers run asynchronously after the emitting transaction commits;
// each one opens its own transaction and logs its own failures.
func RegisterSubscriptions(bus *events.Bus, uowFactory interfaces.UnitOfWorkFactory) {
	aggregator := NewStatsAggregator(uowFactory)

	bus.Subscribe(domainevents.EventTypeWagerPlaced, func(ctx context.Context, event domainevents.Event) {
		e, ok := event.(domainevents.WagerPlacedEvent)
		if !ok {
			return
		}
		if err := aggregator.HandleWagerPlaced(ctx, e); err != nil {
			reportFailure(handlerWagerPlaced, event, err)
		}
	})

	bus.Subscribe(domainevents.EventTypeWagerSettled, func(ctx context.Context, event domainevents.Event) {
		e, ok := event.(domainevents.WagerSettledEvent)
		if !ok {
			return
		}
		if err := aggregator.HandleWagerSettled(ctx, e); err != nil {
			reportFailure(handlerWagerSettled, event, err)
		}
	})

	bus.Subscribe(domainevents.EventTypeStakeDebited, func(ctx context.Context, event domainevents.Event) {
		e, ok := event.(domainevents.StakeDebitedEvent)
		if !ok {
			return
		}
		if err := aggregator.HandleStakeDebited(ctx, e); err != nil {
			reportFailure(handlerStakeDebited, event, err)
		}
	})

	bus.Subscribe(domainevents.EventTypeStakeCredited, func(ctx context.Context, event domainevents.Event) {
		e, ok := event.(domainevents.StakeCreditedEvent)
		if !ok {
			return
		}
		if err := aggregator.HandleStakeCredited(ctx, e); err != nil {
			reportFailure(handlerStakeCredited, event, err)
		}
	})
}
