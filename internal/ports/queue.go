package ports

type EventSeq uint64

type QueuedEvent struct {
	Seq     EventSeq
	Payload []byte
}

type EventQueue interface {
	Enqueue(seq EventSeq, payload []byte) bool
	DequeueBatch(max int) []QueuedEvent
	Len() int
}
