/*
Package entity holds the data model shared by every other package in
wavecast-go: the resume cursor, the channel/channel-group subscription
input, and the reference-counted entity a handle is bound to.

None of these types touch the network or hold a lock. Cursor and Input
are pure value types compared and combined by value, which is what
lets the subscribe and presence state machines treat transitions as
pure functions (see pkg/engine); Entity is shared by pointer and its
reference count changes atomically.
*/
package entity

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Cursor is the resume point for the subscribe loop: a server-issued
// decimal timetoken plus the region that produced it.
type Cursor struct {
	Timetoken string
	Region    uint32
}

// ZeroCursor is the cursor a brand-new subscription starts from.
func ZeroCursor() Cursor {
	return Cursor{Timetoken: "0", Region: 0}
}

// IsZero reports whether the cursor is the default "0" timetoken.
func (c Cursor) IsZero() bool {
	return c.Timetoken == "" || c.Timetoken == "0"
}

// After reports whether c is strictly later than other, comparing the
// timetokens numerically rather than lexically (timetokens are decimal
// strings that can outgrow int64, so comparison is done digit-length
// first, then lexical).
func (c Cursor) After(other Cursor) bool {
	return compareTimetoken(c.Timetoken, other.Timetoken) > 0
}

// AtLeast reports whether c is equal to or later than other.
func (c Cursor) AtLeast(other Cursor) bool {
	return compareTimetoken(c.Timetoken, other.Timetoken) >= 0
}

func compareTimetoken(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Advance returns the cursor that should be stored after a successful
// receive: next only replaces current if it is strictly greater,
// matching spec.md's "only a strictly greater cursor replaces the
// stored one."
func Advance(current, next Cursor) Cursor {
	if next.After(current) {
		return next
	}
	return current
}

// ParseTimetoken returns the numeric value of a timetoken for
// diagnostics/metrics. ok is false, and the value 0, when tt is not a
// decimal integer that fits in an int64.
func ParseTimetoken(tt string) (int64, bool) {
	n, err := strconv.ParseInt(tt, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Input is the subscription input: the set of channels and channel
// groups a handle (or the aggregate of many handles) targets.
//
// Sets are de-duplicated, and an empty set is represented as nil/absent
// rather than an allocated-but-empty slice, so that an empty input has
// a single representation and IsEmpty is cheap.
type Input struct {
	Channels      []string
	ChannelGroups []string
}

// IsEmpty reports whether both channels and groups are absent.
func (in Input) IsEmpty() bool {
	return len(in.Channels) == 0 && len(in.ChannelGroups) == 0
}

// NewInput builds a de-duplicated, sorted Input from raw slices.
func NewInput(channels, groups []string) Input {
	return Input{Channels: dedupSorted(channels), ChannelGroups: dedupSorted(groups)}
}

func dedupSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// Union returns the set-union of in and other, de-duplicated.
func (in Input) Union(other Input) Input {
	return NewInput(append(append([]string{}, in.Channels...), other.Channels...),
		append(append([]string{}, in.ChannelGroups...), other.ChannelGroups...))
}

// Difference returns in minus other (set difference), collapsing to
// the absent representation when the result is empty.
func (in Input) Difference(other Input) Input {
	subChannels := difference(in.Channels, other.Channels)
	subGroups := difference(in.ChannelGroups, other.ChannelGroups)
	return Input{Channels: subChannels, ChannelGroups: subGroups}
}

func difference(a, b []string) []string {
	if len(a) == 0 {
		return nil
	}
	exclude := make(map[string]struct{}, len(b))
	for _, v := range b {
		exclude[v] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, v := range a {
		if _, ok := exclude[v]; ok {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Equal reports whether two inputs contain the same channels and
// groups, ignoring order (both sides are already sorted by NewInput,
// but callers may build an Input by hand, so compare as sets here).
func (in Input) Equal(other Input) bool {
	return sameSet(in.Channels, other.Channels) && sameSet(in.ChannelGroups, other.ChannelGroups)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]string{}, a...)
	bc := append([]string{}, b...)
	sort.Strings(ac)
	sort.Strings(bc)
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}

// Contains reports whether name appears in either set of the input.
func (in Input) Contains(name string) bool {
	for _, c := range in.Channels {
		if c == name {
			return true
		}
	}
	for _, g := range in.ChannelGroups {
		if g == name {
			return true
		}
	}
	return false
}

// Kind enumerates the entity kinds an application can subscribe to.
type Kind string

const (
	KindChannel         Kind = "channel"
	KindChannelGroup    Kind = "channel-group"
	KindChannelMetadata Kind = "channel-metadata"
	KindUserMetadata    Kind = "user-metadata"
)

// Entity is a named object referenced by subscription handles. The
// client owns a table of entities keyed by (kind, name); handles hold
// a pointer to the entity they are bound to and mutate its reference
// count only through Retain/Release.
type Entity struct {
	Name  string
	Kind  Kind
	count int64
}

// NewEntity constructs an unreferenced entity.
func NewEntity(kind Kind, name string) *Entity {
	return &Entity{Name: name, Kind: kind}
}

// Retain increments the subscription count, called when a handle bound
// to this entity transitions into the subscribed state.
func (e *Entity) Retain() int64 {
	return atomic.AddInt64(&e.count, 1)
}

// Release decrements the subscription count, called when a handle
// bound to this entity transitions out of the subscribed state. It
// never goes below zero.
func (e *Entity) Release() int64 {
	for {
		cur := atomic.LoadInt64(&e.count)
		if cur == 0 {
			return 0
		}
		if atomic.CompareAndSwapInt64(&e.count, cur, cur-1) {
			return cur - 1
		}
	}
}

// Count returns the current subscription count.
func (e *Entity) Count() int64 {
	return atomic.LoadInt64(&e.count)
}

// InUse reports whether at least one active handle targets this
// entity.
func (e *Entity) InUse() bool {
	return e.Count() > 0
}
