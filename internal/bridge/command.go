package bridge

import "fmt"

// Command is one validated controller set-value call, produced from an
// inbound command message. Transient; consumed by the controller-call
// collaborator.
type Command struct {
	Address   string
	Channel   int
	Parameter string
	Value     any

	// Topic is the originating command topic, kept for error reporting.
	Topic string
}

// CommandTranslator converts inbound command messages into validated
// controller calls using the registry's reverse lookup.
//
// The translator performs no I/O; issuing the call is the caller's job.
type CommandTranslator struct {
	registry *Registry
}

// NewCommandTranslator creates a translator over the given registry.
func NewCommandTranslator(registry *Registry) *CommandTranslator {
	return &CommandTranslator{registry: registry}
}

// Translate resolves a command topic and decodes its payload.
//
// Topics without a reverse mapping fail with ErrUnresolvedTopic.
// Undecodable or out-of-domain payloads fail with ErrDomainViolation and
// produce no controller call.
func (t *CommandTranslator) Translate(topic string, payload []byte) (Command, error) {
	target, ok := t.registry.ReverseLookup(topic)
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrUnresolvedTopic, topic)
	}

	ch, ok := t.registry.Lookup(target.Address, target.Channel)
	if !ok {
		// Reverse index and membership are rebuilt together; a dangling
		// target means the registry was replaced mid-flight.
		return Command{}, fmt.Errorf("%w: %s:%d", ErrUnknownChannel, target.Address, target.Channel)
	}

	dp, ok := ch.Role.Datapoint(target.Datapoint)
	if !ok {
		return Command{}, fmt.Errorf("%w: %s:%d/%s", ErrUnknownChannel, target.Address, target.Channel, target.Datapoint)
	}

	parameter, value, err := dp.DecodeCommand(payload)
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", topic, err)
	}

	return Command{
		Address:   target.Address,
		Channel:   target.Channel,
		Parameter: parameter,
		Value:     value,
		Topic:     topic,
	}, nil
}
