package events

// Subscriber receives events from the event bus. The server uses it to pick
// up seed completions and rebuild the snapshot without a restart.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
