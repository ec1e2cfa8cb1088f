/*
Package dispatcher implements the per-handle event dispatcher (spec.md
§4.H): typed listener streams for messages, signals, presence, object
updates, message actions, files, statuses, and a combined "any update"
stream, fed by a bounded FIFO queue while no listener exists yet.

It is grounded on cuemby-warren/pkg/events' Broker (a map of
subscriber channels guarded by a mutex, non-blocking broadcast, a
background publish loop), generalized from one broadcast channel type
to eight independently typed streams plus the queue-then-drain
behavior spec.md requires for listeners registered after messages
start arriving.
*/
package dispatcher

import (
	"sync"

	"github.com/wavecast/wavecast-go/pkg/entity"
)

// Update is the tagged union a dispatcher fans out, spec.md §3's
// "Decoded update."
type Update struct {
	Kind          UpdateKind
	Message       *Message
	Signal        *Message
	Presence      *PresenceEvent
	AppContext    *AppContextEvent
	MessageAction *MessageActionEvent
	File          *FileEvent
	PublishedAt   entity.Cursor
	Subscription  string
}

// UpdateKind discriminates Update's payload field.
type UpdateKind int

const (
	UpdateMessage UpdateKind = iota
	UpdateSignal
	UpdatePresence
	UpdateAppContext
	UpdateMessageAction
	UpdateFile
)

// Message is a decoded Message or Signal payload.
type Message struct {
	Channel         string
	Data            []byte
	DecryptionError error
	PublishedAt     entity.Cursor
	Publisher       string
}

// PresenceEvent is a decoded presence envelope.
type PresenceEvent struct {
	Channel string
	Event   string
	UUID    string
	Data    []byte
}

// AppContextEvent is a decoded object (channel/user metadata) update.
type AppContextEvent struct {
	Channel string
	Type    string
	Data    []byte
}

// MessageActionEvent is a decoded message-action update.
type MessageActionEvent struct {
	Channel string
	Event   string
	Data    []byte
}

// FileEvent is a decoded file-upload notification.
type FileEvent struct {
	Channel string
	Data    []byte
}

// Status is what the subscription manager broadcasts after an
// EmitStatus invocation.
type Status struct {
	Category string
	Error    error
}

const queueCapacity = 100

// Dispatcher fans Updates and Statuses out to per-type listener
// streams for a single handle. It is safe for concurrent use: Dispatch
// may be called from the manager's routing goroutine while Messages/
// Listen calls register new streams from user goroutines.
type Dispatcher struct {
	mu          sync.Mutex
	hasListener bool
	queue       []queued

	messageStreams       []*Stream[Message]
	signalStreams        []*Stream[Message]
	presenceStreams      []*Stream[PresenceEvent]
	appContextStreams    []*Stream[AppContextEvent]
	messageActionStreams []*Stream[MessageActionEvent]
	fileStreams          []*Stream[FileEvent]
	statusStreams        []*Stream[Status]
	anyStreams           []*Stream[Update]

	invalidated bool
}

type queued struct {
	update *Update
	status *Status
}

// New builds an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch routes update to every stream of the matching type, and to
// every "any update" stream. While no listener has ever been created,
// update is queued (bounded to queueCapacity, oldest dropped first)
// instead.
func (d *Dispatcher) Dispatch(update Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.invalidated {
		return
	}
	if !d.hasListener {
		d.enqueueLocked(queued{update: &update})
		return
	}
	d.routeLocked(update)
}

// DispatchStatus routes a status to every status stream and every "any
// update" stream is not applicable (status is not an Update); statuses
// queue the same way updates do while no listener exists.
func (d *Dispatcher) DispatchStatus(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.invalidated {
		return
	}
	if !d.hasListener {
		d.enqueueLocked(queued{status: &status})
		return
	}
	d.routeStatusLocked(status)
}

func (d *Dispatcher) enqueueLocked(q queued) {
	if len(d.queue) >= queueCapacity {
		d.queue = d.queue[1:]
	}
	d.queue = append(d.queue, q)
}

func (d *Dispatcher) routeLocked(update Update) {
	switch update.Kind {
	case UpdateMessage:
		sendAll(&d.messageStreams, *update.Message)
	case UpdateSignal:
		sendAll(&d.signalStreams, *update.Signal)
	case UpdatePresence:
		sendAll(&d.presenceStreams, *update.Presence)
	case UpdateAppContext:
		sendAll(&d.appContextStreams, *update.AppContext)
	case UpdateMessageAction:
		sendAll(&d.messageActionStreams, *update.MessageAction)
	case UpdateFile:
		sendAll(&d.fileStreams, *update.File)
	}
	sendAll(&d.anyStreams, update)
}

func (d *Dispatcher) routeStatusLocked(status Status) {
	sendAll(&d.statusStreams, status)
}

// drainLocked flips hasListener and drains the queue into the
// newly created stream kind, in arrival order, per spec.md §4.H.
func (d *Dispatcher) drainLocked() {
	if d.hasListener {
		return
	}
	d.hasListener = true
	pending := d.queue
	d.queue = nil
	for _, q := range pending {
		if q.update != nil {
			d.routeLocked(*q.update)
		}
		if q.status != nil {
			d.routeStatusLocked(*q.status)
		}
	}
}

// Messages returns a new stream of decoded Message updates.
func (d *Dispatcher) Messages() *Stream[Message] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[Message]("message")
	d.messageStreams = append(d.messageStreams, s)
	d.drainLocked()
	return s
}

// Signals returns a new stream of decoded Signal updates.
func (d *Dispatcher) Signals() *Stream[Message] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[Message]("signal")
	d.signalStreams = append(d.signalStreams, s)
	d.drainLocked()
	return s
}

// Presence returns a new stream of presence events.
func (d *Dispatcher) Presence() *Stream[PresenceEvent] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[PresenceEvent]("presence")
	d.presenceStreams = append(d.presenceStreams, s)
	d.drainLocked()
	return s
}

// AppContext returns a new stream of object (app-context) updates.
func (d *Dispatcher) AppContext() *Stream[AppContextEvent] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[AppContextEvent]("app_context")
	d.appContextStreams = append(d.appContextStreams, s)
	d.drainLocked()
	return s
}

// MessageActions returns a new stream of message-action updates.
func (d *Dispatcher) MessageActions() *Stream[MessageActionEvent] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[MessageActionEvent]("message_action")
	d.messageActionStreams = append(d.messageActionStreams, s)
	d.drainLocked()
	return s
}

// Files returns a new stream of file-upload notifications.
func (d *Dispatcher) Files() *Stream[FileEvent] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[FileEvent]("file")
	d.fileStreams = append(d.fileStreams, s)
	d.drainLocked()
	return s
}

// Statuses returns a new stream of connection status changes.
func (d *Dispatcher) Statuses() *Stream[Status] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[Status]("status")
	d.statusStreams = append(d.statusStreams, s)
	d.drainLocked()
	return s
}

// AnyUpdate returns a new stream receiving every update regardless of
// kind.
func (d *Dispatcher) AnyUpdate() *Stream[Update] {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newStream[Update]("any")
	d.anyStreams = append(d.anyStreams, s)
	d.drainLocked()
	return s
}

// Invalidate closes every stream and stops further dispatch, called
// when the owning handle is dropped.
func (d *Dispatcher) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidated = true
	for _, s := range d.messageStreams {
		s.Close()
	}
	for _, s := range d.signalStreams {
		s.Close()
	}
	for _, s := range d.presenceStreams {
		s.Close()
	}
	for _, s := range d.appContextStreams {
		s.Close()
	}
	for _, s := range d.messageActionStreams {
		s.Close()
	}
	for _, s := range d.fileStreams {
		s.Close()
	}
	for _, s := range d.statusStreams {
		s.Close()
	}
	for _, s := range d.anyStreams {
		s.Close()
	}
}

// sendAll dispatches value to every live stream in streams,
// non-blocking, dropping closed streams from the slice.
func sendAll[T any](streams *[]*Stream[T], value T) {
	live := (*streams)[:0]
	for _, s := range *streams {
		if s.closed() {
			continue
		}
		s.send(value)
		live = append(live, s)
	}
	*streams = live
}
