// Package bus is a small in-process pub/sub with MQTT-style topics.
// The node publishes its lifecycle on it; the simulator and status
// consumers subscribe.
package bus

import (
	"strings"
	"sync"
)

const (
	// Single matches exactly one topic level.
	Single = "+"
	// Multi matches the remainder of a topic; it must be the last level.
	Multi = "#"
)

// Topic is a sequence of levels, e.g. Topic{"node", "state"}.
type Topic []string

// ParseTopic splits "a/b/c" into levels.
func ParseTopic(s string) Topic { return Topic(strings.Split(s, "/")) }

func (t Topic) String() string { return strings.Join(t, "/") }

func (t Topic) wild() bool {
	for _, l := range t {
		if l == Single || l == Multi {
			return true
		}
	}
	return false
}

// Match reports whether the concrete topic t matches the filter f.
func Match(f, t Topic) bool {
	for i, l := range f {
		if l == Multi {
			return true
		}
		if i >= len(t) {
			return false
		}
		if l != Single && l != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	filter Topic
	ch     chan *Message
	conn   *Connection
}

func (s *Subscription) Topic() Topic             { return s.filter }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[string]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(l string, create bool) *node {
	if c, ok := n.children[l]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c := &node{}
	n.children[l] = c
	return c
}

type Bus struct {
	mu   sync.Mutex
	root *node
	qLen int
}

// NewBus creates a bus whose subscriptions buffer queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscriber. A retained message
// with nil payload clears the retained slot. Wildcard topics panic.
func (b *Bus) Publish(msg *Message) {
	if msg.Topic.wild() {
		panic("bus: publish to wildcard topic " + msg.Topic.String())
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.root
		for _, l := range msg.Topic {
			n = n.child(l, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
	b.deliver(b.root, msg.Topic, msg)
}

func (b *Bus) deliver(n *node, rest Topic, msg *Message) {
	if c := n.child(Multi, false); c != nil {
		c.send(msg)
	}
	if len(rest) == 0 {
		n.send(msg)
		return
	}
	if c := n.child(rest[0], false); c != nil {
		b.deliver(c, rest[1:], msg)
	}
	if c := n.child(Single, false); c != nil {
		b.deliver(c, rest[1:], msg)
	}
}

func (n *node) send(msg *Message) {
	for _, s := range n.subs {
		select {
		case s.ch <- msg:
		default:
			// Queue full: drop the oldest.
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- msg:
			default:
			}
		}
	}
}

func (b *Bus) subscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.root
	for _, l := range s.filter {
		n = n.child(l, true)
	}
	n.subs = append(n.subs, s)
	b.replay(b.root, nil, s)
}

// replay sends every retained message that matches s.
func (b *Bus) replay(n *node, path Topic, s *Subscription) {
	if n.retained != nil && Match(s.filter, path) {
		select {
		case s.ch <- n.retained:
		default:
		}
	}
	for l, c := range n.children {
		if l == Single || l == Multi {
			continue
		}
		b.replay(c, append(path[:len(path):len(path)], l), s)
	}
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.root
	stack := []*node{n}
	for _, l := range s.filter {
		if n = n.child(l, false); n == nil {
			return
		}
		stack = append(stack, n)
	}
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	for i := len(s.filter) - 1; i >= 0; i-- {
		c := stack[i+1]
		if len(c.subs) > 0 || len(c.children) > 0 || c.retained != nil {
			break
		}
		delete(stack[i].children, s.filter[i])
	}
}

// Connection groups the subscriptions of one client so they can be
// released together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(filter Topic) *Subscription {
	for i, l := range filter {
		if l == Multi && i != len(filter)-1 {
			panic("bus: '#' must be the last level in " + filter.String())
		}
	}
	s := &Subscription{filter: filter, ch: make(chan *Message, c.bus.qLen), conn: c}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	c.bus.subscribe(s)
	return s
}

func (c *Connection) Unsubscribe(s *Subscription) {
	c.mu.Lock()
	found := false
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(s)
	close(s.ch)
}

// Disconnect closes all subscriptions of the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.unsubscribe(s)
		close(s.ch)
	}
}
