package board

// EventKind names one completed mutation. The set is closed: every broadcast
// event carries exactly one of these kinds.
type EventKind string

const (
	EventBlockCreated   EventKind = "block_created"
	EventBlockUpdated   EventKind = "block_updated"
	EventBlockDeleted   EventKind = "block_deleted"
	EventLinkCreated    EventKind = "link_created"
	EventLinkDeleted    EventKind = "link_deleted"
	EventCommentCreated EventKind = "comment_created"
	EventCommentDeleted EventKind = "comment_deleted"
)

// Event is the envelope handed to the fan-out channel after a successful
// mutation. Payload is the created or updated entity; deletion events carry
// only the removed identifier.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}

// DeletedPayload identifies the entity removed by a deletion event.
type DeletedPayload struct {
	ID string `json:"id"`
}

func blockCreatedEvent(block Block) Event {
	return Event{Kind: EventBlockCreated, Payload: block}
}

func blockUpdatedEvent(block Block) Event {
	return Event{Kind: EventBlockUpdated, Payload: block}
}

func blockDeletedEvent(id string) Event {
	return Event{Kind: EventBlockDeleted, Payload: DeletedPayload{ID: id}}
}

func linkCreatedEvent(link Link) Event {
	return Event{Kind: EventLinkCreated, Payload: link}
}

func linkDeletedEvent(id string) Event {
	return Event{Kind: EventLinkDeleted, Payload: DeletedPayload{ID: id}}
}

func commentCreatedEvent(comment Comment) Event {
	return Event{Kind: EventCommentCreated, Payload: comment}
}

func commentDeletedEvent(id string) Event {
	return Event{Kind: EventCommentDeleted, Payload: DeletedPayload{ID: id}}
}

// Publisher receives one event per successful mutation. Delivery is
// fire-and-forget: the gateway never blocks on or inspects the outcome.
type Publisher interface {
	Publish(event Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
